package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/DevDeskHQ/devdesk_api/internal/cache"
	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// AuthService implements the credentials login flow and the single-session
// policy: a user row holds at most one current session ID, and a new login
// overwrites it, invalidating any earlier token on its next check.
type AuthService struct {
	userRepo *repository.UserRepository
	activity *ActivityService
	limiter  *cache.LoginLimiter
	secret   string
	ttl      time.Duration
}

// NewAuthService constructs an AuthService. limiter may be nil in tests.
func NewAuthService(userRepo *repository.UserRepository, activity *ActivityService, limiter *cache.LoginLimiter, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		activity: activity,
		limiter:  limiter,
		secret:   secret,
		ttl:      ttl,
	}
}

// Login validates credentials and mints a fresh session token. Unknown email
// and wrong password both return ErrInvalidCredentials so responses do not
// reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (string, *models.User, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, ip) {
		return "", nil, utils.ErrTooManyAttempts
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Debug().Str("email", email).Msg("Login attempt for unknown email")
		s.recordFailure(ctx, ip)
		return "", nil, utils.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("email", email).Msg("Password verification failed")
		s.recordFailure(ctx, ip)
		return "", nil, utils.ErrInvalidCredentials
	}

	// One UPDATE persists the new sole session ID; concurrent logins resolve
	// last-writer-wins and the loser's token fails its next validity check.
	sessionID := uuid.New().String()
	if err := s.userRepo.UpdateSessionToken(user.ID, sessionID); err != nil {
		return "", nil, err
	}
	// The row was loaded before the UPDATE stamped it; mirror the new session
	// and login time so the response carries this login, not the previous one.
	now := time.Now()
	user.CurrentSessionToken = &sessionID
	user.LastLoginAt = &now

	token, err := utils.SignSessionToken(s.secret, user.ID, user.Email, user.Role, sessionID, s.ttl)
	if err != nil {
		return "", nil, err
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, ip)
	}
	log.Info().Str("email", email).Msg("Login successful")
	s.activity.RecordAsync(ctx, &user.ID, user.Name, "login", "signed in from "+ip, models.LevelInfo)

	return token, user, nil
}

// Validate checks a raw token: signature and expiry first, then that its
// session ID still matches the persisted one. Tokens displaced by a newer
// login fail the second check.
func (s *AuthService) Validate(raw string) (*models.User, error) {
	claims, err := utils.ParseSessionToken(s.secret, raw)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	if user.CurrentSessionToken == nil || *user.CurrentSessionToken != claims.SessionID {
		return nil, utils.ErrSessionSuperseded
	}
	return user, nil
}

// Logout clears the persisted session and records the event.
func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	if err := s.userRepo.ClearSessionToken(user.ID); err != nil {
		return err
	}
	s.activity.RecordAsync(ctx, &user.ID, user.Name, "logout", "signed out", models.LevelInfo)
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, ip string) {
	if s.limiter != nil {
		s.limiter.RecordFailure(ctx, ip)
	}
}
