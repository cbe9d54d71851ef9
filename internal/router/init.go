package router

import (
	"log"

	userapp "userhub/internal/application"
	"userhub/internal/container"
	"userhub/internal/domain/repository"
	"userhub/internal/infrastructure/blob"
	"userhub/internal/infrastructure/directory"
	pginfra "userhub/internal/infrastructure/postgres"
	handlers "userhub/internal/interface/http"
	"userhub/internal/router/modules"
)

func buildBlobStore() repository.BlobStore {
	cfg := container.GetConfig()
	if cfg.BlobBackend == "gcs" {
		if container.GetGCS() == nil || cfg.GCSBucket == "" {
			log.Fatal("BLOB_BACKEND=gcs requires a GCS client and GCS_BUCKET")
		}
		return blob.NewGCSStore(container.GetGCS(), cfg.GCSBucket)
	}
	store, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("init blob store: %v", err)
	}
	return store
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	dirClient := directory.NewClient(
		cfg.DirectoryBaseURL,
		cfg.DirectoryTimeout,
		container.GetRedis(),
		cfg.DirectoryCacheTTL,
		logger,
	)

	userSvc := userapp.NewUserService(
		pginfra.NewUserRepository(container.GetPGPool()),
		container.GetRabbitPub(),
		logger,
		container.GetES(),
		cfg.ESUsersIndex,
	)

	avatarSvc := userapp.NewAvatarService(
		pginfra.NewAvatarRepository(container.GetPGPool()),
		buildBlobStore(),
		dirClient,
		logger,
	)

	userHandler := handlers.NewUserHandler(userSvc, dirClient, logger)
	avatarHandler := handlers.NewAvatarHandler(avatarSvc, dirClient, logger)
	healthHandler := handlers.NewHealthHandler(container.GetPGPool(), container.GetRedis())

	r.Add(modules.New(userHandler, avatarHandler))
	r.Add(modules.NewHealth(healthHandler))
}
