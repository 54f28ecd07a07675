package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

// ActivityRepository provides data access methods for the activity_logs table.
// Entries are append-only; there is no update path.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity entry and fills in id/created_at.
func (r *ActivityRepository) Create(entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, agent, action, details, level)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, entry.UserID, entry.Agent, entry.Action, entry.Details, entry.Level).
		Scan(&entry.ID, &entry.CreatedAt)
}

// ListFilter narrows activity listings. Zero values mean "no filter".
type ListFilter struct {
	Level  string
	UserID int
}

// List returns one page of activity entries, newest first.
func (r *ActivityRepository) List(page, limit int, filter ListFilter) ([]*models.ActivityLog, error) {
	offset := (page - 1) * limit
	entries := []*models.ActivityLog{}
	err := r.db.Select(&entries, `
		SELECT id, user_id, agent, action, details, level, created_at
		FROM activity_logs
		WHERE ($1 = '' OR level = $1)
		  AND ($2 = 0 OR user_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, filter.Level, filter.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the total entries matching the filter.
func (r *ActivityRepository) Count(filter ListFilter) (int, error) {
	var total int
	err := r.db.Get(&total, `
		SELECT COUNT(*) FROM activity_logs
		WHERE ($1 = '' OR level = $1)
		  AND ($2 = 0 OR user_id = $2)
	`, filter.Level, filter.UserID)
	return total, err
}

// DeleteOlderThan prunes entries created before the cutoff and returns the
// number removed.
func (r *ActivityRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM activity_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
