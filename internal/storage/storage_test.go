package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("local by default", func(t *testing.T) {
		l, err := New(ctx, Config{LocalDir: t.TempDir()}, logger)
		require.NoError(t, err)
		assert.Equal(t, "local", l.Type())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(ctx, Config{Backend: "ftp"}, logger)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("s3 needs a bucket", func(t *testing.T) {
		_, err := New(ctx, Config{Backend: "s3"}, logger)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}
