package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("you don't have permission to update this case")
	ErrCaseNotFound          = errors.New("case not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidStatusIndex    = errors.New("invalid status index")
	ErrTokenInvalidOrExpired = errors.New("token is invalid or expired")
	ErrInvalidToken          = errors.New("invalid token")
)
