package application

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"userhub/internal/domain/entity"
	"userhub/internal/domain/repository"
)

// ImageFetcher downloads raw avatar bytes from an upstream source.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// AvatarService caches avatar images. Images are content-addressed:
// the blob key is derived from the SHA-256 of the bytes, and metadata
// (user -> hash, key) lives in the avatar repository. The service holds
// no locks; the repository's uniqueness constraint on the user id is
// the only arbiter of concurrent first fetches.
type AvatarService struct {
	Records repository.AvatarRepository
	Blobs   repository.BlobStore
	Fetcher ImageFetcher
	Logger  *logrus.Logger
}

func NewAvatarService(records repository.AvatarRepository, blobs repository.BlobStore, fetcher ImageFetcher, logger *logrus.Logger) *AvatarService {
	return &AvatarService{
		Records: records,
		Blobs:   blobs,
		Fetcher: fetcher,
		Logger:  logger,
	}
}

// BlobKey derives the storage key for image bytes with the given
// SHA-256 hex digest. Same bytes, same key, for every caller.
func BlobKey(contentHash string) string {
	return "avatars/" + contentHash + ".png"
}

// ContentHash computes the SHA-256 hex digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FetchAvatar returns the base64-encoded avatar for userID, serving
// from cache when a record exists and fetching from sourceURL
// otherwise. The sourceURL is ignored on a cache hit.
func (s *AvatarService) FetchAvatar(ctx context.Context, userID, sourceURL string) (string, error) {
	rec, err := s.Records.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if rec != nil {
		return s.readCached(ctx, rec)
	}

	data, err := s.Fetcher.FetchImage(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	hash := ContentHash(data)
	key := BlobKey(hash)

	// Blob before metadata: a crash in between leaves an inert orphan
	// blob, never a record pointing at nothing.
	if err := s.Blobs.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	rec = &entity.Avatar{UserID: userID, ContentHash: hash, StorageKey: key}
	if err := s.Records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// A concurrent first fetch won the race. Drop our
			// reference and serve the winner's cached copy; the
			// caller never sees the race.
			if s.Logger != nil {
				s.Logger.WithField("user_id", userID).Debug("lost first-fetch race, serving winner's avatar")
			}
			winner, gerr := s.Records.Get(ctx, userID)
			if gerr != nil {
				return "", gerr
			}
			return s.readCached(ctx, winner)
		}
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *AvatarService) readCached(ctx context.Context, rec *entity.Avatar) (string, error) {
	data, err := s.Blobs.Read(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, repository.ErrBlobNotFound) {
			if s.Logger != nil {
				s.Logger.WithFields(logrus.Fields{
					"user_id":     rec.UserID,
					"storage_key": rec.StorageKey,
				}).Error("avatar record has no backing blob")
			}
			return "", ErrStorageCorrupted
		}
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DeleteAvatar removes the cached avatar for userID, record and blob.
// Deleting an avatar that does not exist is a successful no-op: the
// desired end state ("no cached avatar") already holds.
func (s *AvatarService) DeleteAvatar(ctx context.Context, userID string) error {
	rec, err := s.Records.Delete(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Blobs.Delete(ctx, rec.StorageKey)
}
