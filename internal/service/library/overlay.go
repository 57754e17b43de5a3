package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/repository/docstore"
)

const overlayFetchLimit = 8

type overlayService struct {
	store  repositories.DocumentStore
	logger *slog.Logger
}

// NewOverlayService creates the per-viewer overlay store
func NewOverlayService(store repositories.DocumentStore, logger *slog.Logger) libsvc.OverlayService {
	return &overlayService{store: store, logger: logger}
}

// GetOverlays fetches overlays in parallel. A missing overlay is an empty patch.
func (s *overlayService) GetOverlays(ctx context.Context, fileIDs []string, viewerID string) (map[string]models.OverlayPatch, error) {
	patches := make([]models.OverlayPatch, len(fileIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overlayFetchLimit)
	for i, id := range fileIDs {
		g.Go(func() error {
			p, err := s.get(gctx, id, viewerID)
			if err != nil {
				return fmt.Errorf("overlay %s: %w", id, err)
			}
			patches[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]models.OverlayPatch, len(fileIDs))
	for i, id := range fileIDs {
		out[id] = patches[i]
	}
	return out, nil
}

func (s *overlayService) get(ctx context.Context, fileID, viewerID string) (models.OverlayPatch, error) {
	doc, err := s.store.Get(ctx, docstore.Join(overlays(fileID), viewerID))
	if errors.Is(err, domain.ErrNotFound) {
		return models.OverlayPatch{}, nil
	}
	if err != nil {
		return models.OverlayPatch{}, err
	}
	return models.DecodeOverlayPatch(doc.Data)
}

// SetOverlay merges patch into the viewer's overlay. The read and the write
// are separate store calls: a concurrent write by the same viewer between them
// can be lost. Flags are per viewer and rarely contended, so this is accepted.
func (s *overlayService) SetOverlay(ctx context.Context, fileID, viewerID string, patch models.OverlayPatch) error {
	current, err := s.get(ctx, fileID, viewerID)
	if err != nil {
		return err
	}
	merged := current.Merge(patch)
	if err := s.store.Set(ctx, docstore.Join(overlays(fileID), viewerID), merged.Data()); err != nil {
		return err
	}
	s.logger.Debug("overlay updated", "file_id", fileID, "viewer_id", viewerID)
	return nil
}

// deleteOverlays removes every viewer's overlay for a file and returns the
// paths that could not be deleted.
func deleteOverlays(ctx context.Context, store repositories.DocumentStore, fileID string) []domain.PathFailure {
	collection := overlays(fileID)
	docs, err := store.Query(ctx, collection)
	if err != nil {
		return []domain.PathFailure{{Path: collection, Err: err}}
	}
	var failures []domain.PathFailure
	for _, d := range docs {
		if err := store.Delete(ctx, d.Path); err != nil {
			failures = append(failures, domain.PathFailure{Path: d.Path, Err: err})
		}
	}
	return failures
}
