package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	"scorelib/internal/domain/repositories"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name      string
		filters   []repositories.Filter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "collection only",
			wantWhere: "collection = $1",
			wantArgs:  []any{"folders"},
		},
		{
			name:      "null equality",
			filters:   []repositories.Filter{repositories.Where("parentFolderId", nil)},
			wantWhere: "collection = $1 AND (data->($2::text) IS NULL OR data->($2::text) = 'null'::jsonb)",
			wantArgs:  []any{"folders", "parentFolderId"},
		},
		{
			name: "equality and array contains",
			filters: []repositories.Filter{
				repositories.Where("ownerUserId", "u1"),
				repositories.ArrayContains("sharedWithUserIds", "u2"),
			},
			wantWhere: "collection = $1 AND data->($2::text) = $3::jsonb AND data->($4::text) @> $5::jsonb",
			wantArgs:  []any{"folders", "ownerUserId", `"u1"`, "sharedWithUserIds", `["u2"]`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildQuery("documents", "folders", tt.filters)
			require.NoError(t, err)
			assert.Equal(t, "SELECT doc_id, data FROM documents WHERE "+tt.wantWhere+" ORDER BY doc_id", query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := buildQuery("documents", "folders", []repositories.Filter{{Field: "x", Op: "<"}})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestNewTableNames(t *testing.T) {
	names := NewTableNames("dev_")
	assert.Equal(t, "dev_documents", names.Documents)
	assert.Equal(t, "dev_document_changes", names.Channel)
}
