package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// CreateUserRequest is the body for POST /v1/users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest is the body for PUT /v1/users/:id. Blank fields leave the
// stored values unchanged.
type UpdateUserRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Role     string `json:"role"`
}

// UserService implements user management on top of the repository, with the
// audit trail written for every mutation.
type UserService struct {
	userRepo *repository.UserRepository
	activity *ActivityService
}

// NewUserService constructs a UserService.
func NewUserService(userRepo *repository.UserRepository, activity *ActivityService) *UserService {
	return &UserService{userRepo: userRepo, activity: activity}
}

// List returns one page of users plus the total matching the search filter.
func (s *UserService) List(page, limit int, search string) ([]*models.User, int, error) {
	users, err := s.userRepo.List(page, limit, search)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.Count(search)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Get returns a single user by id.
func (s *UserService) Get(id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create adds a new user after checking role validity and email uniqueness.
func (s *UserService) Create(ctx context.Context, actor *models.User, req *CreateUserRequest) (*models.User, error) {
	if !models.IsValidRole(req.Role) {
		return nil, utils.ErrInvalidRole
	}

	taken, err := s.userRepo.ExistsEmail(req.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, utils.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.activity.RecordAsync(ctx, &actor.ID, actor.Name, "create_user",
		fmt.Sprintf("created user %s (%s)", user.Email, user.Role), models.LevelInfo)
	return user, nil
}

// Update applies a partial update. Fields left blank in the request keep their
// stored values; a supplied password is re-hashed.
func (s *UserService) Update(ctx context.Context, actor *models.User, id int, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Role != "" && !models.IsValidRole(req.Role) {
		return nil, utils.ErrInvalidRole
	}

	if req.Email != "" && req.Email != user.Email {
		taken, err := s.userRepo.ExistsEmail(req.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, utils.ErrEmailTaken
		}
	}

	var hash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(hashed)
	}

	updated := &models.User{
		ID:           id,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.userRepo.Update(updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	updated.CreatedAt = user.CreatedAt

	s.activity.RecordAsync(ctx, &actor.ID, actor.Name, "update_user",
		fmt.Sprintf("updated user %s", updated.Email), models.LevelInfo)
	return updated, nil
}

// Delete removes a user. Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id int) error {
	if actor.ID == id {
		return utils.ErrSelfDelete
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrUserNotFound
		}
		return err
	}

	s.activity.RecordAsync(ctx, &actor.ID, actor.Name, "delete_user",
		fmt.Sprintf("deleted user %s", user.Email), models.LevelWarning)
	return nil
}
