package user

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user: not found")

	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("user: username or email already exists")
)
