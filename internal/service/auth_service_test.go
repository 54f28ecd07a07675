package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

const testSecret = "test-secret"

type authFixture struct {
	svc  *AuthService
	mock sqlmock.Sqlmock
	hash string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	userRepo := repository.NewUserRepository(sqlxDB)
	activity := NewActivityService(repository.NewActivityRepository(sqlxDB), nil, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	return &authFixture{
		svc:  NewAuthService(userRepo, activity, nil, testSecret, time.Hour),
		mock: mock,
		hash: string(hash),
	}
}

func (f *authFixture) expectUserByEmail(email string, sessionID *string) {
	now := time.Now()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "password_hash", "role",
			"current_session_token", "last_login_at", "created_at", "updated_at",
		}).AddRow(1, email, "Admin", f.hash, "admin", sessionID, nil, now, now))
}

func (f *authFixture) expectUserByID(id int, sessionID *string) {
	now := time.Now()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "password_hash", "role",
			"current_session_token", "last_login_at", "created_at", "updated_at",
		}).AddRow(id, "admin@devdesk.local", "Admin", f.hash, "admin", sessionID, nil, now, now))
}

func (f *authFixture) expectSuccessfulLogin(email string) {
	f.expectUserByEmail(email, nil)
	f.mock.ExpectExec(`UPDATE users`).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(`INSERT INTO activity_logs`).
		WithArgs(1, "Admin", "login", sqlmock.AnyArg(), "info").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	f.expectSuccessfulLogin("admin@devdesk.local")

	token, user, err := f.svc.Login(context.Background(), "admin@devdesk.local", "correct horse", "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "admin", user.Role)

	// The returned row reflects this login, not the stale pre-update load.
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *user.LastLoginAt, 5*time.Second)

	claims, err := utils.ParseSessionToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.NotEmpty(t, claims.SessionID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.expectUserByEmail("admin@devdesk.local", nil)

	_, _, err := f.svc.Login(context.Background(), "admin@devdesk.local", "wrong", "127.0.0.1")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ghost@devdesk.local").
		WillReturnError(sql.ErrNoRows)

	// Unknown email and wrong password are indistinguishable to the caller.
	_, _, err := f.svc.Login(context.Background(), "ghost@devdesk.local", "whatever", "127.0.0.1")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthServiceSecondLoginInvalidatesFirst(t *testing.T) {
	f := newAuthFixture(t)

	f.expectSuccessfulLogin("admin@devdesk.local")
	token1, _, err := f.svc.Login(context.Background(), "admin@devdesk.local", "correct horse", "127.0.0.1")
	require.NoError(t, err)

	f.expectSuccessfulLogin("admin@devdesk.local")
	token2, _, err := f.svc.Login(context.Background(), "admin@devdesk.local", "correct horse", "127.0.0.2")
	require.NoError(t, err)
	require.NotEqual(t, token1, token2)

	claims2, err := utils.ParseSessionToken(testSecret, token2)
	require.NoError(t, err)

	// The persisted session now holds the second session ID.
	f.expectUserByID(1, &claims2.SessionID)
	_, err = f.svc.Validate(token1)
	assert.ErrorIs(t, err, utils.ErrSessionSuperseded)

	f.expectUserByID(1, &claims2.SessionID)
	user, err := f.svc.Validate(token2)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthServiceValidateGarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Validate("definitely-not-a-jwt")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestAuthServiceValidateClearedSession(t *testing.T) {
	f := newAuthFixture(t)
	f.expectSuccessfulLogin("admin@devdesk.local")

	token, _, err := f.svc.Login(context.Background(), "admin@devdesk.local", "correct horse", "127.0.0.1")
	require.NoError(t, err)

	// Logout cleared the stored session; the token is structurally valid but
	// no longer authorizes.
	f.expectUserByID(1, nil)
	_, err = f.svc.Validate(token)
	assert.ErrorIs(t, err, utils.ErrSessionSuperseded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthServiceLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.expectSuccessfulLogin("admin@devdesk.local")

	_, user, err := f.svc.Login(context.Background(), "admin@devdesk.local", "correct horse", "127.0.0.1")
	require.NoError(t, err)

	f.mock.ExpectExec(`UPDATE users SET current_session_token = NULL`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(`INSERT INTO activity_logs`).
		WithArgs(1, "Admin", "logout", "signed out", "info").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))

	require.NoError(t, f.svc.Logout(context.Background(), user))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
