package repository

import "context"

// BlobStore persists raw bytes under opaque keys. Keys are derived from
// content, so writing the same bytes to the same key twice must be
// harmless, and a read immediately after a successful write observes
// the full byte sequence.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) error
	// Read returns ErrBlobNotFound when no object exists under key.
	Read(ctx context.Context, key string) ([]byte, error)
	// Delete is a no-op when the object is already absent.
	Delete(ctx context.Context, key string) error
}
