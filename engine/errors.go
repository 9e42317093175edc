package engine

import "errors"

// The externally visible error taxonomy. Failures outside this set, such as
// file or keychain I/O errors and a corrupt envelope, have no kind of their
// own here and reach the command layer with their wrapped messages.
var (
	// ErrAuthFailed covers wrong password, invalid OAuth token, wrong
	// biometric key and ciphertext tag mismatch. Callers cannot and must
	// not tell these apart.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrLocked is returned from authenticated operations while no session
	// is active.
	ErrLocked = errors.New("locked")

	// ErrNotFound is an absent entry id, or an absent vault file on unlock.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is init against a present vault.
	ErrAlreadyExists = errors.New("vault already exists")

	// ErrInvalid is malformed input: bad hex, empty required field,
	// unknown field value.
	ErrInvalid = errors.New("invalid input")
)
