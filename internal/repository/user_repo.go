package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

// UserRepository provides data access methods for the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, current_session_token, last_login_at, created_at, updated_at`

// GetByID finds a user by numeric id.
func (r *UserRepository) GetByID(id int) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail finds a user by email address.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsEmail reports whether another user (excluding excludeID) has the email.
// Pass excludeID=0 when creating.
func (r *UserRepository) ExistsEmail(email string, excludeID int) (bool, error) {
	var exists bool
	err := r.db.Get(&exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id != $2)`,
		email, excludeID)
	return exists, err
}

// List returns one page of users, newest first, with an optional search filter
// against email and name.
func (r *UserRepository) List(page, limit int, search string) ([]*models.User, error) {
	offset := (page - 1) * limit
	users := []*models.User{}
	err := r.db.Select(&users, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the total number of users matching the search filter.
func (r *UserRepository) Count(search string) (int, error) {
	var total int
	err := r.db.Get(&total, `
		SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
	`, search)
	return total, err
}

// Create inserts a new user.
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(query, user.Email, user.Name, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// Update applies a partial update: empty strings leave the stored value
// unchanged (NULLIF + COALESCE), so callers can send only the fields they mean
// to change.
func (r *UserRepository) Update(user *models.User) error {
	query := `
		UPDATE users
		SET email = COALESCE(NULLIF($1, ''), email),
		    name = COALESCE(NULLIF($2, ''), name),
		    password_hash = COALESCE(NULLIF($3, ''), password_hash),
		    role = COALESCE(NULLIF($4, ''), role),
		    updated_at = NOW()
		WHERE id = $5
		RETURNING email, name, password_hash, role, updated_at
	`
	return r.db.QueryRow(query, user.Email, user.Name, user.PasswordHash, user.Role, user.ID).
		Scan(&user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.UpdatedAt)
}

// UpdateSessionToken stores the new sole session token and stamps the login
// time. A single UPDATE keeps concurrent logins last-writer-wins.
func (r *UserRepository) UpdateSessionToken(id int, sessionID string) error {
	res, err := r.db.Exec(`
		UPDATE users
		SET current_session_token = $1, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, sessionID, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// ClearSessionToken removes the stored session token on logout.
func (r *UserRepository) ClearSessionToken(id int) error {
	_, err := r.db.Exec(`
		UPDATE users SET current_session_token = NULL, updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

// Delete removes a user. Activity logs cascade at the schema level.
func (r *UserRepository) Delete(id int) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
