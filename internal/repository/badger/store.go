// Package badger persists library documents in an embedded BadgerDB.
//
// Keys are "d:<collection>\x00<id>" and values are the JSON-encoded document
// data. The separator keeps a collection's prefix scan from reaching into
// nested collections ("folders" vs "folders/<id>/files").
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/docstore"
)

// Config configures the embedded store.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
}

// Store implements repositories.DocumentStore on BadgerDB. Change signals are
// process-local, so a badger-backed server runs as a single instance.
type Store struct {
	db     *badger.DB
	hub    *docstore.Hub
	logger *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("%w: badger directory is required", domain.ErrValidation)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Dir, err)
	}

	logger.Info("badger document store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)

	return &Store{
		db:     db,
		hub:    docstore.NewHub(),
		logger: logger,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func collectionPrefix(collection string) []byte {
	return []byte("d:" + collection + "\x00")
}

func key(collection, id string) []byte {
	return append(collectionPrefix(collection), id...)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func (s *Store) Get(ctx context.Context, path string) (*repositories.Document, error) {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data map[string]any
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &data)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}
	return &repositories.Document{ID: id, Path: path, Data: data}, nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(collection, id), raw)
	}); err != nil {
		return unavailable("set document", err)
	}

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
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return err
		}
		var existing map[string]any
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &existing)
		}); err != nil {
			return err
		}
		for k, v := range data {
			existing[k] = v
		}
		raw, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return txn.Set(key(collection, id), raw)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return unavailable("update document", err)
	}

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

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(collection, id))
	}); err != nil {
		return unavailable("delete document", err)
	}

	s.hub.Publish(collection)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}

	prefix := collectionPrefix(collection)
	var docs []repositories.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(item.Key()[len(prefix):])

			var data map[string]any
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &data)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", id, err)
			}
			if docstore.Matches(data, filters) {
				docs = append(docs, repositories.Document{
					ID:   id,
					Path: docstore.Join(collection, id),
					Data: data,
				})
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, unavailable("query documents", err)
	}

	// Badger iterates in key order, which is id order within one prefix.
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
