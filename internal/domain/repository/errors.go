package repository

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint. The avatar cache relies on it to arbitrate concurrent
	// first fetches for the same user.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrBlobNotFound is returned by blob stores when no object exists
	// under the given key.
	ErrBlobNotFound = errors.New("blob not found")
)
