package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"scorelib/internal/auth"
	"scorelib/internal/config"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/repository"
	"scorelib/internal/service/library"
	"scorelib/internal/service/usage"
	"scorelib/internal/storage"
)

// env is the service graph a command works against.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   repositories.DocumentStore
	admin   *auth.AdminClient
	dir     libsvc.UserDirectory
	loader  libsvc.TreeLoader
	engine  libsvc.DeletionEngine
	folders libsvc.FolderService
	files   libsvc.FileService
	usage   libsvc.UsageService
	close   func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	logger := config.NewLogger(os.Stderr, cfg.Debug)

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	content, err := storage.New(ctx, storage.Config{
		Backend:   cfg.ContentBackend,
		LocalDir:  cfg.ContentDir,
		BaseURL:   cfg.ContentBaseURL,
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	}, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("open content storage: %w", err)
	}

	registry, err := filetypes.NewRegistry()
	if err != nil {
		closeStore()
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, store: store, close: closeStore}

	var accounts libsvc.AccountLookup
	if cfg.AuthAdminURL != "" {
		e.admin = auth.NewAdminClient(cfg.AuthAdminURL, cfg.AuthServiceKey)
		accounts = e.admin
	}

	overlays := library.NewOverlayService(store, logger)
	e.dir = library.NewUserDirectory(store, accounts, logger)
	e.loader = library.NewTreeLoader(store, overlays, logger)
	e.engine = library.NewDeletionEngine(store, content, logger)
	e.folders = library.NewFolderService(store, e.dir, e.engine, logger)
	e.files = library.NewFileService(store, content, overlays, registry, logger)
	e.usage = usage.NewService(store, logger)
	return e, nil
}
