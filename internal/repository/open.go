// Package repository opens the configured document store.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"scorelib/internal/config"
	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/badger"
	"scorelib/internal/repository/memory"
	"scorelib/internal/repository/postgres"
)

// Open builds the store named by cfg.StoreBackend. The returned close func
// releases pools, listeners and files; it is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.DocumentStore, func(), error) {
	switch cfg.StoreBackend {
	case "", config.StoreMemory:
		logger.Warn("using in-memory document store; data is lost on restart")
		return memory.NewStore(logger), func() {}, nil

	case config.StoreBadger:
		store, err := badger.NewStore(badger.Config{Dir: cfg.BadgerDir}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("badger store opened", "dir", cfg.BadgerDir)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("close badger store", "error", err)
			}
		}, nil

	case config.StorePostgres:
		return openPostgres(ctx, cfg, logger)

	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrValidation, cfg.StoreBackend)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.DocumentStore, func(), error) {
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	if err := postgres.EnsureSchema(ctx, repoConfig); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store := postgres.NewDocumentStore(repoConfig, postgres.NewTransactionManager(pool, logger))

	listenCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Listen(listenCtx)
	}()

	logger.Info("postgres store opened",
		"table", repoConfig.Tables.Documents,
		"channel", repoConfig.Tables.Channel,
	)
	return store, func() {
		cancel()
		<-done
		pool.Close()
	}, nil
}
