// Package auth implements credential authentication and the refresh token
// lifecycle: registration, login, token rotation, logout and access
// verification. Session state lives entirely in the user's stored refresh
// fingerprint; there is no separate revocation list.
package auth

import "errors"

// Sentinel errors returned by the service. The HTTP boundary maps these to
// status codes; unauthorized responses must not reveal which one fired.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserCapacity       = errors.New("user limit reached")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)
