package service

import "errors"

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrTokenInvalidated     = errors.New("token has been invalidated")
	ErrInvalidAccessToken   = errors.New("invalid or expired access token")
	ErrUserGone             = errors.New("user no longer exists")
	ErrMissingPlaybackToken = errors.New("playback token is required")
	ErrInvalidPlaybackToken = errors.New("playback token is invalid or expired")
	ErrVideoNotFound        = errors.New("video not found")
)

// ValidationError describes a rejected request field. Message is safe to
// show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
