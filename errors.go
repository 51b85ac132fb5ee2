package authkit

import "errors"

var (
	// ErrNoRefreshToken is the refresh short-circuit: no stored refresh token
	// means no network attempt, only a forced logout.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSessionSuperseded marks an async result discarded because a logout
	// happened while the call was in flight.
	ErrSessionSuperseded = errors.New("session superseded by logout")
	// ErrMalformedResponse marks an auth backend payload missing the fields
	// a full session needs.
	ErrMalformedResponse = errors.New("malformed auth response")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("manager closed")
)
