package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers every authentication failure: bad
	// password, unknown user, invalid, expired or revoked token. Callers
	// get one generic outcome regardless of the sub-reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnconfirmedWrite indicates a write whose visibility could not be
	// confirmed within the retry budget. Callers must treat the operation
	// as failed even though the database may disagree.
	ErrUnconfirmedWrite = errors.New("write not confirmed visible")
	// ErrEncoding indicates a hashing or signing primitive failure.
	ErrEncoding = errors.New("encoding failure")
)
