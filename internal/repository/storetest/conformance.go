// Package storetest checks that a repositories.DocumentStore behaves the way
// the library services expect.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
)

// Run exercises store against the DocumentStore contract. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) repositories.DocumentStore) {
	t.Run("get set update delete", func(t *testing.T) {
		testCRUD(t, newStore(t))
	})
	t.Run("query filters", func(t *testing.T) {
		testQuery(t, newStore(t))
	})
	t.Run("nested collections stay separate", func(t *testing.T) {
		testNested(t, newStore(t))
	})
	t.Run("subscribe", func(t *testing.T) {
		testSubscribe(t, newStore(t))
	})
	t.Run("bad paths", func(t *testing.T) {
		testPaths(t, newStore(t))
	})
}

func testCRUD(t *testing.T, s repositories.DocumentStore) {
	ctx := context.Background()

	_, err := s.Get(ctx, "users/u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"email": "a@example.com", "age": 3}))
	doc, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.ID)
	assert.Equal(t, "users/u1", doc.Path)
	assert.Equal(t, "a@example.com", doc.Data["email"])
	assert.Equal(t, float64(3), doc.Data["age"])

	require.NoError(t, s.Update(ctx, "users/u1", map[string]any{"age": 4, "name": "Ann"}))
	doc, err = s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": "a@example.com", "age": float64(4), "name": "Ann"}, doc.Data)

	err = s.Update(ctx, "users/missing", map[string]any{"x": 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Set replaces rather than merges.
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"email": "b@example.com"}))
	doc, err = s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": "b@example.com"}, doc.Data)

	added, err := s.Add(ctx, "users", map[string]any{"email": "c@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	_, err = s.Get(ctx, added.Path)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "users/u1"))
	require.NoError(t, s.Delete(ctx, "users/u1"))
	_, err = s.Get(ctx, "users/u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func testQuery(t *testing.T, s repositories.DocumentStore) {
	ctx := context.Background()
	parent := "f1"
	require.NoError(t, s.Set(ctx, "folders/c", map[string]any{"name": "C", "parentFolderId": nil, "sharedWithUserIds": []string{"u2"}}))
	require.NoError(t, s.Set(ctx, "folders/a", map[string]any{"name": "A", "sharedWithUserIds": []string{"u2", "u3"}}))
	require.NoError(t, s.Set(ctx, "folders/b", map[string]any{"name": "B", "parentFolderId": &parent, "sharedWithUserIds": []string{"u3"}}))

	ids := func(docs []repositories.Document) []string {
		out := make([]string, len(docs))
		for i, d := range docs {
			out[i] = d.ID
		}
		return out
	}

	tests := []struct {
		name    string
		filters []repositories.Filter
		want    []string
	}{
		{"no filters ordered by id", nil, []string{"a", "b", "c"}},
		{"nil matches null and absent", []repositories.Filter{repositories.Where("parentFolderId", nil)}, []string{"a", "c"}},
		{"equality", []repositories.Filter{repositories.Where("parentFolderId", "f1")}, []string{"b"}},
		{"array contains", []repositories.Filter{repositories.ArrayContains("sharedWithUserIds", "u2")}, []string{"a", "c"}},
		{"filters are ANDed", []repositories.Filter{
			repositories.ArrayContains("sharedWithUserIds", "u3"),
			repositories.Where("parentFolderId", nil),
		}, []string{"a"}},
		{"no match", []repositories.Filter{repositories.Where("name", "Z")}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, "folders", tt.filters...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func testNested(t *testing.T, s repositories.DocumentStore) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "folders/f1", map[string]any{"name": "F"}))
	require.NoError(t, s.Set(ctx, "folders/f1/files/x", map[string]any{"fileName": "x.pdf"}))
	require.NoError(t, s.Set(ctx, "folders2/f9", map[string]any{"name": "G"}))

	top, err := s.Query(ctx, "folders")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "f1", top[0].ID)

	files, err := s.Query(ctx, "folders/f1/files")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "folders/f1/files/x", files[0].Path)
}

func testSubscribe(t *testing.T, s repositories.DocumentStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Set(ctx, "users/u1/files/a", map[string]any{"practiced": false}))
	ch, err := s.Subscribe(ctx, "users/u1/files", repositories.Where("practiced", true))
	require.NoError(t, err)

	select {
	case docs := <-ch:
		assert.Empty(t, docs)
	case <-time.After(time.Second):
		t.Fatal("no initial emission")
	}

	require.NoError(t, s.Update(ctx, "users/u1/files/a", map[string]any{"practiced": true}))
	require.Eventually(t, func() bool {
		select {
		case docs := <-ch:
			return len(docs) == 1 && docs[0].ID == "a"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func testPaths(t *testing.T, s repositories.DocumentStore) {
	ctx := context.Background()
	for _, path := range []string{"users", "users/u1/files", "users//x", ""} {
		_, err := s.Get(ctx, path)
		assert.True(t, errors.Is(err, domain.ErrValidation), path)
	}
	_, err := s.Query(ctx, "users/u1")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
