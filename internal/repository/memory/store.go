// Package memory is an in-process document store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/docstore"
)

// Store keeps every collection in a map keyed by collection path.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	hub         *docstore.Hub
	logger      *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		hub:         docstore.NewHub(),
		logger:      logger,
	}
}

func (s *Store) Get(ctx context.Context, path string) (*repositories.Document, error) {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}
	return &repositories.Document{ID: id, Path: path, Data: docstore.Clone(data)}, nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	normalized, err := docstore.Normalize(data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	docs[id] = normalized
	s.mu.Unlock()

	s.hub.Publish(collection)
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (*repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	path := docstore.Join(collection, id)
	if err := s.Set(ctx, path, data); err != nil {
		return nil, err
	}
	return &repositories.Document{ID: id, Path: path, Data: docstore.Clone(data)}, nil
}

func (s *Store) Update(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	patch, err := docstore.Normalize(data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	existing, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}
	for k, v := range patch {
		existing[k] = v
	}
	s.mu.Unlock()

	s.hub.Publish(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	if len(s.collections[collection]) == 0 {
		delete(s.collections, collection)
	}
	s.mu.Unlock()

	if existed {
		s.hub.Publish(collection)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]repositories.Document, 0, len(s.collections[collection]))
	for id, data := range s.collections[collection] {
		if docstore.Matches(data, filters) {
			docs = append(docs, repositories.Document{
				ID:   id,
				Path: docstore.Join(collection, id),
				Data: docstore.Clone(data),
			})
		}
	}
	s.mu.RUnlock()

	docstore.SortByID(docs)
	return docs, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, filters ...repositories.Filter) (<-chan []repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	return docstore.Watch(ctx, s.hub, collection, func(ctx context.Context) ([]repositories.Document, error) {
		return s.Query(ctx, collection, filters...)
	}, s.logger)
}

// Len returns the number of stored documents across all collections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, docs := range s.collections {
		n += len(docs)
	}
	return n
}

// Subscriptions returns the number of open live queries.
func (s *Store) Subscriptions() int {
	return s.hub.Count()
}
