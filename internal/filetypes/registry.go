// Package filetypes is the registry of file formats the library accepts.
package filetypes

import (
	"embed"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry resolves MIME types and extensions to accepted formats. It is
// immutable after loading.
type Registry struct {
	byMIME      map[string]*FileType
	byExtension map[string]*FileType
	ordered     []FileType
}

// NewRegistry loads the embedded registry.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/filetypes.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read filetypes.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file types: %w", err)
	}

	r := &Registry{
		byMIME:      make(map[string]*FileType),
		byExtension: make(map[string]*FileType),
		ordered:     file.Types,
	}
	for i := range r.ordered {
		ft := &r.ordered[i]
		if ft.MIME == "" {
			return nil, fmt.Errorf("file type %d has no mime", i)
		}
		r.byMIME[strings.ToLower(ft.MIME)] = ft
		for _, ext := range ft.Extensions {
			r.byExtension[strings.ToLower(ext)] = ft
		}
	}
	return r, nil
}

// Lookup returns the registered type for a MIME type (parameters ignored).
func (r *Registry) Lookup(mimeType string) (*FileType, bool) {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = mimeType
	}
	ft, ok := r.byMIME[strings.ToLower(strings.TrimSpace(base))]
	return ft, ok
}

// Detect resolves a type from the declared MIME type, falling back to the
// file name's extension when the declared type is missing or generic.
func (r *Registry) Detect(fileName, declared string) (*FileType, bool) {
	if ft, ok := r.Lookup(declared); ok {
		return ft, true
	}
	ft, ok := r.byExtension[strings.ToLower(filepath.Ext(fileName))]
	return ft, ok
}

// List returns all types in registry order.
func (r *Registry) List() []FileType {
	out := make([]FileType, len(r.ordered))
	copy(out, r.ordered)
	return out
}
