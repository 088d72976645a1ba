package schema

import "errors"

var (
	// ErrNotFound indicates a content fragment or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFetch indicates content retrieval failed for a reason other than not found.
	ErrFetch = errors.New("fetch failed")
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidKey indicates an unrecognised key event.
	ErrInvalidKey = errors.New("invalid key")
	// ErrSessionNotFound indicates a requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed indicates the session loop has stopped.
	ErrSessionClosed = errors.New("session closed")
)
