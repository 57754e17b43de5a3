package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/config"
	"scorelib/internal/domain"
	"scorelib/internal/repository/badger"
	"scorelib/internal/repository/memory"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory by default", func(t *testing.T) {
		store, closeFn, err := Open(context.Background(), &config.Config{}, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.Store{}, store)
	})

	t.Run("badger", func(t *testing.T) {
		store, closeFn, err := Open(context.Background(), &config.Config{StoreBackend: config.StoreBadger, BadgerDir: t.TempDir()}, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &badger.Store{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := Open(context.Background(), &config.Config{StoreBackend: "mongo"}, logger)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}
