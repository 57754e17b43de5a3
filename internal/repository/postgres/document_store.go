package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
	"scorelib/internal/repository/docstore"
)

// DocumentStore keeps every document as a jsonb row keyed by
// (collection, doc_id). Writes notify Tables.Channel with the collection path
// in the same transaction; Listen turns those notifications into live query
// refreshes on every server instance.
type DocumentStore struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	txManager repositories.TransactionManager
	hub       *docstore.Hub
	logger    *slog.Logger
}

func NewDocumentStore(cfg *RepositoryConfig, txManager repositories.TransactionManager) *DocumentStore {
	return &DocumentStore{
		pool:      cfg.Pool,
		tables:    cfg.Tables,
		txManager: txManager,
		hub:       docstore.NewHub(),
		logger:    cfg.Logger,
	}
}

func (s *DocumentStore) notify(ctx context.Context, collection string) error {
	executor := GetExecutor(ctx, s.pool)
	if _, err := executor.Exec(ctx, `SELECT pg_notify($1, $2)`, s.tables.Channel, collection); err != nil {
		return storeError("notify change", err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, path string) (*repositories.Document, error) {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE collection = $1 AND doc_id = $2`, s.tables.Documents)

	var raw []byte
	executor := GetExecutor(ctx, s.pool)
	if err := executor.QueryRow(ctx, query, collection, id).Scan(&raw); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
		}
		return nil, storeError("get document", err)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return &repositories.Document{ID: id, Path: path, Data: data}, nil
}

func (s *DocumentStore) Set(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (collection, doc_id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, s.tables.Documents)

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, s.pool)
		if _, err := executor.Exec(ctx, query, collection, id, string(raw)); err != nil {
			return storeError("set document", err)
		}
		return s.notify(ctx, collection)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(collection)
	return nil
}

func (s *DocumentStore) Add(ctx context.Context, collection string, data map[string]any) (*repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	query := fmt.Sprintf(`INSERT INTO %s (collection, doc_id, data) VALUES ($1, $2, $3::jsonb)`, s.tables.Documents)

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, s.pool)
		if _, err := executor.Exec(ctx, query, collection, id, string(raw)); err != nil {
			if IsPgDuplicateError(err) {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("document %s/%s already exists", collection, id),
					ResourceType: "document",
					ResourceID:   id,
				}
			}
			return storeError("add document", err)
		}
		return s.notify(ctx, collection)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(collection)
	return &repositories.Document{ID: id, Path: docstore.Join(collection, id), Data: docstore.Clone(data)}, nil
}

func (s *DocumentStore) Update(ctx context.Context, path string, data map[string]any) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	// jsonb || merges top-level keys, matching the store's update contract.
	query := fmt.Sprintf(`
		UPDATE %s SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND doc_id = $2
	`, s.tables.Documents)

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, s.pool)
		tag, err := executor.Exec(ctx, query, collection, id, string(raw))
		if err != nil {
			return storeError("update document", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
		}
		return s.notify(ctx, collection)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(collection)
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, path string) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND doc_id = $2`, s.tables.Documents)

	deleted := false
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, s.pool)
		tag, err := executor.Exec(ctx, query, collection, id)
		if err != nil {
			return storeError("delete document", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		deleted = true
		return s.notify(ctx, collection)
	})
	if err != nil {
		return err
	}

	if deleted {
		s.hub.Publish(collection)
	}
	return nil
}

// buildQuery renders filters as jsonb predicates. Field names are bound as
// parameters, never interpolated.
func buildQuery(table, collection string, filters []repositories.Filter) (string, []any, error) {
	args := []any{collection}
	clauses := []string{"collection = $1"}

	for _, f := range filters {
		field := len(args) + 1
		switch f.Op {
		case repositories.OpEq:
			if f.Value == nil {
				args = append(args, f.Field)
				clauses = append(clauses, fmt.Sprintf("(data->($%d::text) IS NULL OR data->($%d::text) = 'null'::jsonb)", field, field))
				continue
			}
			raw, err := json.Marshal(f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
			}
			args = append(args, f.Field, string(raw))
			clauses = append(clauses, fmt.Sprintf("data->($%d::text) = $%d::jsonb", field, field+1))
		case repositories.OpArrayContains:
			raw, err := json.Marshal([]any{f.Value})
			if err != nil {
				return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
			}
			args = append(args, f.Field, string(raw))
			clauses = append(clauses, fmt.Sprintf("data->($%d::text) @> $%d::jsonb", field, field+1))
		default:
			return "", nil, fmt.Errorf("%w: unsupported filter operator %q", domain.ErrValidation, f.Op)
		}
	}

	query := fmt.Sprintf(`SELECT doc_id, data FROM %s WHERE %s ORDER BY doc_id`, table, strings.Join(clauses, " AND "))
	return query, args, nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	query, args, err := buildQuery(s.tables.Documents, collection, filters)
	if err != nil {
		return nil, err
	}

	executor := GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query documents", err)
	}
	defer rows.Close()

	docs := []repositories.Document{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, storeError("scan document", err)
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, repositories.Document{
			ID:   id,
			Path: docstore.Join(collection, id),
			Data: data,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate documents", err)
	}

	return docs, nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, collection string, filters ...repositories.Filter) (<-chan []repositories.Document, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	return docstore.Watch(ctx, s.hub, collection, func(ctx context.Context) ([]repositories.Document, error) {
		return s.Query(ctx, collection, filters...)
	}, s.logger)
}
