package models

import "time"

// User roles, in decreasing order of privilege for user management.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleViewer    = "viewer"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDeveloper, RoleUser, RoleViewer:
		return true
	}
	return false
}

// User represents a dashboard account. CurrentSessionToken holds the single
// active session ID; a new login overwrites it and invalidates older tokens.
type User struct {
	ID                  int        `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	Name                string     `db:"name" json:"name"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Role                string     `db:"role" json:"role"`
	CurrentSessionToken *string    `db:"current_session_token" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}
