// Package docstore holds plumbing shared by the document store backends:
// path handling, filter evaluation and live query fan-out.
package docstore

import (
	"fmt"
	"strings"

	"scorelib/internal/domain"
)

func segments(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// Split breaks a document path into its collection path and document id.
func Split(path string) (collection, id string, err error) {
	parts := segments(path)
	if len(parts) < 2 || len(parts)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is not a document path", domain.ErrValidation, path)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", fmt.Errorf("%w: empty segment in %q", domain.ErrValidation, path)
		}
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}

// CheckCollection validates a collection path.
func CheckCollection(collection string) error {
	parts := segments(collection)
	if len(parts)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", domain.ErrValidation, collection)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: empty segment in %q", domain.ErrValidation, collection)
		}
	}
	return nil
}

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}
