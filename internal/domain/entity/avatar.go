package entity

import (
	"time"
)

// Avatar records a cached avatar image for a user. ContentHash is the
// SHA-256 hex digest of the image bytes; StorageKey is the blob store
// key derived from it. At most one Avatar exists per UserID.
type Avatar struct {
	UserID      string
	ContentHash string
	StorageKey  string
	CreatedAt   time.Time
}
