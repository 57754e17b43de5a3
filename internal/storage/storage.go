// Package storage selects the content backend that holds uploaded file bytes.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/storage/local"
	"scorelib/internal/storage/minio"
	"scorelib/internal/storage/s3"
)

// Config selects and configures a content backend.
type Config struct {
	Backend   string // local | s3 | minio
	LocalDir  string
	BaseURL   string // public URL prefix for returned locators
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New builds the configured ContentLocator.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (repositories.ContentLocator, error) {
	var (
		locator repositories.ContentLocator
		err     error
	)

	switch cfg.Backend {
	case "", "local":
		locator, err = local.New(cfg.LocalDir, cfg.BaseURL)
	case "s3":
		locator, err = s3.New(ctx, s3.Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			BaseURL:   cfg.BaseURL,
		}, logger)
	case "minio":
		locator, err = minio.New(ctx, minio.Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown content backend %q", domain.ErrValidation, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("content backend ready", "type", locator.Type())
	return locator, nil
}
