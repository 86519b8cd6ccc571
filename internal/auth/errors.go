package auth

import "errors"

var (
	// ErrMissingSecret indicates the signing secret is not configured. This is
	// a deployment fault, not a caller fault.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")

	// ErrInvalidToken indicates the token is malformed or its signature failed.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrNotFound is returned by user stores for unknown lookups.
	ErrNotFound = errors.New("auth: not found")
)
