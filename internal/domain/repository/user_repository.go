package repository

import (
	"context"

	"userhub/internal/domain/entity"
)

// UserRepository defines the interface for user persistence. The store
// assigns the identifier and timestamps on Create.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
