package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"scorelib/internal/domain/repositories"
)

// Normalize round-trips data through JSON so every backend stores and
// compares the same value shapes (float64 numbers, []any arrays).
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// Matches reports whether data satisfies every filter.
func Matches(data map[string]any, filters []repositories.Filter) bool {
	for _, f := range filters {
		if !matches(data, f) {
			return false
		}
	}
	return true
}

func matches(data map[string]any, f repositories.Filter) bool {
	v, ok := data[f.Field]
	switch f.Op {
	case repositories.OpEq:
		if f.Value == nil {
			return !ok || v == nil
		}
		return ok && reflect.DeepEqual(v, normalizeValue(f.Value))
	case repositories.OpArrayContains:
		arr, isArr := v.([]any)
		if !isArr {
			return false
		}
		want := normalizeValue(f.Value)
		for _, item := range arr {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// SortByID orders documents by id.
func SortByID(docs []repositories.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

// Clone deep-copies document data.
func Clone(data map[string]any) map[string]any {
	out, err := Normalize(data)
	if err != nil {
		return map[string]any{}
	}
	return out
}
