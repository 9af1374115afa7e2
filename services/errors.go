package services

import "errors"

var (
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong password,
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a user lookup matches no document.
	ErrUserNotFound = errors.New("user not found")

	// ErrProviderUnavailable is returned when the mailbox or identity provider
	// cannot be reached or the stored credential can no longer be refreshed.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrIncompleteIdentity is returned when the identity provider response is
	// missing required fields (email, subject id).
	ErrIncompleteIdentity = errors.New("incomplete identity from provider")
)
