package models

import "time"

// Activity log levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// IsValidLevel reports whether level is one of the known activity levels.
func IsValidLevel(level string) bool {
	switch level {
	case LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}

// ActivityLog is one immutable entry in the audit trail. UserID is nil for
// system-originated actions.
type ActivityLog struct {
	ID        int       `db:"id" json:"id"`
	UserID    *int      `db:"user_id" json:"userId,omitempty"`
	Agent     string    `db:"agent" json:"agent"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	Level     string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
