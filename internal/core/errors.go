package core

import "errors"

var (
	// ErrUnsupported is returned when no backend (or not this backend)
	// implements the requested capability.
	ErrUnsupported = errors.New("operation not supported")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)
