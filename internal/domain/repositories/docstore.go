package repositories

import (
	"context"
)

// Document is one addressable record of the document store.
type Document struct {
	ID   string         `json:"id"`
	Path string         `json:"path"`
	Data map[string]any `json:"data"`
}

// FilterOp is a query predicate operator.
type FilterOp string

const (
	// OpEq matches equal values. A nil value matches null or absent fields.
	OpEq FilterOp = "=="
	// OpArrayContains matches array fields holding the value.
	OpArrayContains FilterOp = "array-contains"
)

// Filter is a single predicate on a top-level field. Query filters are ANDed.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// ArrayContains builds an array membership filter.
func ArrayContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// DocumentStore is the schemaless document database the library runs on.
// Paths alternate collection and document id segments.
type DocumentStore interface {
	// Get returns the document at path or domain.ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)

	// Set replaces the document at path.
	Set(ctx context.Context, path string, data map[string]any) error

	// Add creates a document with a store-assigned id in collection.
	Add(ctx context.Context, collection string, data map[string]any) (*Document, error)

	// Update merges top-level fields into an existing document.
	// Returns domain.ErrNotFound if the document does not exist.
	Update(ctx context.Context, path string, data map[string]any) error

	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error

	// Query returns the documents directly inside collection matching all filters,
	// ordered by id.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Subscribe emits the current query result and re-emits it after every change
	// in collection. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, collection string, filters ...Filter) (<-chan []Document, error)
}
