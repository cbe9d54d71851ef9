package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"userhub/internal/domain/entity"
	"userhub/internal/domain/repository"
)

// AvatarRepository stores avatar metadata in the avatars table. The
// user_id primary key is the uniqueness constraint that decides
// concurrent first-fetch races.
type AvatarRepository struct {
	pool *pgxpool.Pool
}

func NewAvatarRepository(pool *pgxpool.Pool) *AvatarRepository {
	return &AvatarRepository{pool: pool}
}

func (r *AvatarRepository) Get(ctx context.Context, userID string) (*entity.Avatar, error) {
	a := &entity.Avatar{}

	row := r.pool.QueryRow(ctx, `
		SELECT user_id, content_hash, storage_key, created_at
		FROM avatars
		WHERE user_id = $1
	`, userID)

	if err := row.Scan(&a.UserID, &a.ContentHash, &a.StorageKey, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

func (r *AvatarRepository) Create(ctx context.Context, a *entity.Avatar) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO avatars (user_id, content_hash, storage_key)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, a.UserID, a.ContentHash, a.StorageKey)

	if err := row.Scan(&a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *AvatarRepository) Delete(ctx context.Context, userID string) (*entity.Avatar, error) {
	a := &entity.Avatar{}

	// DELETE ... RETURNING removes and reports the prior row in one
	// statement, so two concurrent deletes can never both observe it.
	row := r.pool.QueryRow(ctx, `
		DELETE FROM avatars
		WHERE user_id = $1
		RETURNING user_id, content_hash, storage_key, created_at
	`, userID)

	if err := row.Scan(&a.UserID, &a.ContentHash, &a.StorageKey, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

var _ repository.AvatarRepository = (*AvatarRepository)(nil)
