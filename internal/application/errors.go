package application

import (
	"errors"
	"fmt"
)

// ErrStorageCorrupted means an avatar record exists but its backing
// blob is gone. Fatal for the request; surfaced as an internal error.
var ErrStorageCorrupted = errors.New("avatar storage corrupted: record present but blob missing")

// PartialCreateError reports that a user was durably persisted but the
// creation event could not be published. There is no compensating
// delete; a retrying caller must expect the user to already exist.
type PartialCreateError struct {
	UserID string
	Err    error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("user %s created but event publication failed: %v", e.UserID, e.Err)
}

func (e *PartialCreateError) Unwrap() error { return e.Err }
