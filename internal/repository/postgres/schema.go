package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the documents table and its indexes when missing.
func EnsureSchema(ctx context.Context, cfg *RepositoryConfig) error {
	t := cfg.Tables.Documents
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, doc_id)
		)`, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_data_idx ON %s USING GIN (data jsonb_path_ops)`, t, t),
	}

	for _, stmt := range stmts {
		if _, err := cfg.Pool.Exec(ctx, stmt); err != nil {
			return storeError("ensure schema", err)
		}
	}

	cfg.Logger.Info("document schema ready", "table", t)
	return nil
}

// DropSchema removes the documents table.
func DropSchema(ctx context.Context, cfg *RepositoryConfig) error {
	if _, err := cfg.Pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, cfg.Tables.Documents)); err != nil {
		return storeError("drop schema", err)
	}
	return nil
}
