package docstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		path       string
		collection string
		id         string
		wantErr    bool
	}{
		{path: "users/u1", collection: "users", id: "u1"},
		{path: "/folders/f1/files/x/", collection: "folders/f1/files", id: "x"},
		{path: "users", wantErr: true},
		{path: "users/u1/files", wantErr: true},
		{path: "users//x/y", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			collection, id, err := Split(tt.path)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.collection, collection)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMatches(t *testing.T) {
	data, err := Normalize(map[string]any{
		"count": 2,
		"ids":   []string{"u1", "u2"},
		"nil":   nil,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter repositories.Filter
		want   bool
	}{
		{"int equals normalized float", repositories.Where("count", 2), true},
		{"absent is nil", repositories.Where("missing", nil), true},
		{"null is nil", repositories.Where("nil", nil), true},
		{"present is not nil", repositories.Where("count", nil), false},
		{"array contains", repositories.ArrayContains("ids", "u2"), true},
		{"array lacks", repositories.ArrayContains("ids", "u3"), false},
		{"not an array", repositories.ArrayContains("count", 2), false},
		{"unknown op", repositories.Filter{Field: "count", Op: ">", Value: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(data, []repositories.Filter{tt.filter}))
		})
	}
}

func TestHub(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe("folders")
	assert.Equal(t, 1, h.Count())

	// A full buffer drops further signals instead of blocking.
	h.Publish("folders")
	h.Publish("folders")
	h.Publish("other")
	<-ch
	select {
	case <-ch:
		t.Fatal("expected a single pending signal")
	default:
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Count())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestWatch_LatestWins(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n int
	query := func(context.Context) ([]repositories.Document, error) {
		n++
		return []repositories.Document{{ID: string(rune('a' + n - 1))}}, nil
	}
	ch, err := Watch(ctx, hub, "folders", query, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "a", first[0].ID)

	hub.Publish("folders")
	require.Eventually(t, func() bool {
		select {
		case docs := <-ch:
			return docs[0].ID == "b"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestWatch_FirstQueryError(t *testing.T) {
	hub := NewHub()
	boom := errors.New("boom")
	_, err := Watch(context.Background(), hub, "folders", func(context.Context) ([]repositories.Document, error) {
		return nil, boom
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, hub.Count())
}
