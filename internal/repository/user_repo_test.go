package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func userRows(id int, email, name, role string, sessionID *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "role",
		"current_session_token", "last_login_at", "created_at", "updated_at",
	}).AddRow(id, email, name, "$2a$10$hash", role, sessionID, nil, now, now)
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, name, password_hash, role, current_session_token, last_login_at, created_at, updated_at FROM users WHERE email = $1`)).
		WithArgs("dev@devdesk.local").
		WillReturnRows(userRows(3, "dev@devdesk.local", "Dev", "developer", nil))

	user, err := repo.GetByEmail("dev@devdesk.local")
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.Equal(t, "developer", user.Role)
	assert.Nil(t, user.CurrentSessionToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id != $2)`)).
		WithArgs("taken@devdesk.local", 5).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsEmail("taken@devdesk.local", 5)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListPaginates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	rows := userRows(2, "b@devdesk.local", "B", "user", nil)
	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("", 20, 20).
		WillReturnRows(rows)

	users, err := repo.List(2, 20, "")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@devdesk.local", users[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateFillsGeneratedColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("new@devdesk.local", "New User", "hash", "viewer").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))

	user := &models.User{Email: "new@devdesk.local", Name: "New User", PasswordHash: "hash", Role: "viewer"}
	require.NoError(t, repo.Create(user))
	assert.Equal(t, 11, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdatePartial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	// Blank fields ride through as empty strings; COALESCE(NULLIF($n, ''), col)
	// keeps the stored values, and the RETURNING clause reports them back.
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(NULLIF($1, ''), email)`)).
		WithArgs("", "Renamed", "", "", 8).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name", "password_hash", "role", "updated_at"}).
			AddRow("kept@devdesk.local", "Renamed", "kept-hash", "developer", now))

	user := &models.User{ID: 8, Name: "Renamed"}
	require.NoError(t, repo.Update(user))
	assert.Equal(t, "kept@devdesk.local", user.Email)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, "kept-hash", user.PasswordHash)
	assert.Equal(t, "developer", user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateSessionToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("sid-new", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSessionToken(4, "sid-new"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateSessionTokenMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("sid-new", 404).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UpdateSessionToken(404, "sid-new"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(7))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(7), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
