package domain

import "errors"

// Error messages on the auth sentinels are phrased the way the auth service
// reports them, so they map through the auth error table.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrRateLimited        = errors.New("email rate limit exceeded")
	ErrLinkExpired        = errors.New("magic link is invalid or has expired")
	ErrDuplicateProfile   = errors.New("profile already exists")
	ErrDuplicateSession   = errors.New("session already exists for date")
)
