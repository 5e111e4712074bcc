package service

import "errors"

// Identity error taxonomy. Handlers translate these to transport status
// codes with errors.Is; every value maps to a user-safe message.
var (
	// ErrInvalidCredentials covers both an unknown email and a hash mismatch
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailNotVerified is returned when a local login precedes verification
	ErrEmailNotVerified = errors.New("email is not verified")

	// ErrDuplicateEmail is returned when registering an already-taken email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrAccountNotFound is returned by forgot-password for an unknown email
	ErrAccountNotFound = errors.New("account not found")

	// ErrUserNotFound is returned by profile operations on a missing user
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidOrExpiredToken covers unknown, consumed and expired tokens;
	// the cases are intentionally indistinguishable to the caller
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrProviderProfileIncomplete is returned when a provider asserts a
	// profile without a provider-scoped id
	ErrProviderProfileIncomplete = errors.New("provider profile is incomplete")

	// ErrInvalidSession is returned for a bad or expired session token
	ErrInvalidSession = errors.New("invalid or expired session")
)
