package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists indicates a user already exists with the provided ID.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrLoginTaken indicates another user already holds the login.
	ErrLoginTaken = errors.New("login already taken")

	// ErrEmailTaken indicates another user already holds the email.
	ErrEmailTaken = errors.New("email already taken")

	// ErrUnavailable wraps connectivity failures of the backing store.
	ErrUnavailable = errors.New("user store unavailable")
)
