package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrTooManyAttempts    = errors.New("TOO_MANY_ATTEMPTS")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrSessionSuperseded  = errors.New("SESSION_SUPERSEDED")
	ErrUserNotFound       = errors.New("USER_NOT_FOUND")
	ErrEmailTaken         = errors.New("EMAIL_TAKEN")
	ErrSelfDelete         = errors.New("SELF_DELETE")
	ErrInvalidRole        = errors.New("INVALID_ROLE")
	ErrPathNotAllowed     = errors.New("PATH_NOT_ALLOWED")
	ErrNotFound           = errors.New("NOT_FOUND")
	ErrInvalidFrontMatter = errors.New("INVALID_FRONT_MATTER")
	ErrInvalidName        = errors.New("INVALID_NAME")
	ErrProviderFailure    = errors.New("PROVIDER_FAILURE")
)
