// Package local keeps file content on the server's filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"scorelib/internal/domain"
)

type Locator struct {
	root    string
	baseURL string
}

// New stores content under root and builds locators as baseURL + "/" + path.
func New(root, baseURL string) (*Locator, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: content directory is required", domain.ErrValidation)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create content directory: %w", err)
	}
	return &Locator{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Locator) Type() string { return "local" }

// resolve maps a content path inside root, rejecting escapes.
func (l *Locator) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("%w: empty content path", domain.ErrValidation)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *Locator) Upload(ctx context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create content directory: %w", err)
	}

	tmp := full + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create content file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write content: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close content file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", fmt.Errorf("commit content file: %w", err)
	}

	return l.baseURL + "/" + (&url.URL{Path: strings.TrimLeft(path, "/")}).EscapedPath(), nil
}

func (l *Locator) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("content %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}
	return f, nil
}

func (l *Locator) Delete(ctx context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("content %s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}
