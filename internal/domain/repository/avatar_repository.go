package repository

import (
	"context"

	"userhub/internal/domain/entity"
)

// AvatarRepository persists avatar metadata keyed by user id. Records
// are immutable once created; there is no update operation.
type AvatarRepository interface {
	// Get returns the record for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*entity.Avatar, error)
	// Create inserts the record. Uniqueness of UserID is enforced by
	// the store; a concurrent insert for the same user returns
	// ErrDuplicateKey.
	Create(ctx context.Context, a *entity.Avatar) error
	// Delete atomically removes and returns the prior record, or
	// ErrNotFound when no record existed.
	Delete(ctx context.Context, userID string) (*entity.Avatar, error)
}
