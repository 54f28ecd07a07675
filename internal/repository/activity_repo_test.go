package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	userID := 3
	mock.ExpectQuery(`INSERT INTO activity_logs`).
		WithArgs(userID, "builder", "write_file", "saved /workspace/main.go", "info").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, time.Now()))

	entry := &models.ActivityLog{
		UserID:  &userID,
		Agent:   "builder",
		Action:  "write_file",
		Details: "saved /workspace/main.go",
		Level:   models.LevelInfo,
	}
	require.NoError(t, repo.Create(entry))
	assert.Equal(t, 42, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "agent", "action", "details", "level", "created_at"}).
		AddRow(2, nil, "system", "sweep", "", "warning", time.Now()).
		AddRow(1, nil, "system", "boot", "", "warning", time.Now().Add(-time.Minute))

	mock.ExpectQuery(`SELECT .+ FROM activity_logs`).
		WithArgs("warning", 0, 50, 0).
		WillReturnRows(rows)

	entries, err := repo.List(1, 50, ListFilter{Level: "warning"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].ID, "newest first")
	assert.Nil(t, entries[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_logs`).
		WithArgs("", 7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))

	total, err := repo.Count(ListFilter{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryDeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM activity_logs WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 57))

	removed, err := repo.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 57, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
