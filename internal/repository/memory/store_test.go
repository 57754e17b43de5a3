package memory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/storetest"
)

func newStore() *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repositories.DocumentStore { return newStore() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"tags": []string{"a"}}))

	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	doc.Data["tags"] = "mutated"

	again, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, again.Data["tags"])
	assert.Equal(t, 1, s.Len())
}

func TestStore_SubscriptionsReleased(t *testing.T) {
	s := newStore()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Subscribe(ctx, "folders")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Subscriptions())

	cancel()
	assert.Eventually(t, func() bool { return s.Subscriptions() == 0 }, time.Second, 5*time.Millisecond)
}
