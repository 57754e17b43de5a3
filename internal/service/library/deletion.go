package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/metrics"
	"scorelib/internal/repository/docstore"
)

type deletionEngine struct {
	store   repositories.DocumentStore
	content repositories.ContentLocator
	logger  *slog.Logger
}

// NewDeletionEngine creates the recursive folder deleter
func NewDeletionEngine(store repositories.DocumentStore, content repositories.ContentLocator, logger *slog.Logger) libsvc.DeletionEngine {
	return &deletionEngine{store: store, content: content, logger: logger}
}

// frame is one folder on the traversal stack.
type frame struct {
	id       string
	shared   bool
	parent   int // stack index of the enclosing frame, -1 for the top folder
	expanded bool
	keep     bool // something under this folder could not be removed; its record stays
}

// DeleteFolderRecursively walks the subtree post-order with an explicit
// stack: a folder's children are pushed above it, and it is popped only after
// all of them. Failed deletes are collected and never retried.
func (e *deletionEngine) DeleteFolderRecursively(ctx context.Context, userID, folderID string, isShared bool) error {
	var failures []domain.PathFailure
	deleted := 0

	stack := []frame{{id: folderID, shared: isShared, parent: -1}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := len(stack) - 1

		if !stack[top].expanded {
			stack[top].expanded = true
			children, err := e.subfolders(ctx, userID, stack[top].id, stack[top].shared)
			if err != nil {
				failures = append(failures, domain.PathFailure{Path: folderCollection(userID, stack[top].shared), Err: err})
				markKeep(stack, top)
				continue
			}
			// Pushed in reverse so children are visited in id order.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: children[i], shared: stack[top].shared, parent: top})
			}
			continue
		}

		f := stack[top]
		stack = stack[:top]

		n, left, fileFailures, err := e.deleteFiles(ctx, userID, f.id, f.shared)
		deleted += n
		failures = append(failures, fileFailures...)
		if err != nil {
			failures = append(failures, domain.PathFailure{Path: fileCollection(userID, &f.id, f.shared), Err: err})
			markKeep(stack, f.parent)
			continue
		}
		if left || f.keep {
			// A file record survived below this folder, so the folder and
			// its ancestors stay reachable for another attempt.
			markKeep(stack, f.parent)
			continue
		}

		path := docstore.Join(folderCollection(userID, f.shared), f.id)
		if err := e.store.Delete(ctx, path); err != nil {
			failures = append(failures, domain.PathFailure{Path: path, Err: err})
			markKeep(stack, f.parent)
			continue
		}
		deleted++
	}

	e.logger.Info("folder deleted recursively",
		"folder_id", folderID,
		"user_id", userID,
		"shared", isShared,
		"deleted", deleted,
		"failed", len(failures),
	)

	if len(failures) > 0 {
		metrics.RecordDeletionFailures(len(failures))
		return &domain.PartialFailureError{
			Operation: fmt.Sprintf("delete folder %s", folderID),
			Failures:  failures,
		}
	}
	return nil
}

// markKeep flags the frame at index i and every ancestor so their records
// survive for a later attempt.
func markKeep(stack []frame, i int) {
	for i >= 0 && i < len(stack) {
		stack[i].keep = true
		i = stack[i].parent
	}
}

func (e *deletionEngine) subfolders(ctx context.Context, userID, folderID string, shared bool) ([]string, error) {
	docs, err := e.store.Query(ctx, folderCollection(userID, shared), repositories.Where("parentFolderId", folderID))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// deleteFiles removes every file directly inside folderID. It returns how
// many records were deleted and whether any record is still in place.
func (e *deletionEngine) deleteFiles(ctx context.Context, userID, folderID string, shared bool) (int, bool, []domain.PathFailure, error) {
	collection := fileCollection(userID, &folderID, shared)
	var filters []repositories.Filter
	if !shared {
		filters = append(filters, repositories.Where("parentFolderId", folderID))
	}
	docs, err := e.store.Query(ctx, collection, filters...)
	if err != nil {
		return 0, false, nil, err
	}

	var failures []domain.PathFailure
	deleted := 0
	left := false
	for _, d := range docs {
		rec, err := models.DecodeFileRecord(d.ID, d.Data)
		if err != nil {
			failures = append(failures, domain.PathFailure{Path: d.Path, Err: err})
			left = true
			continue
		}
		ff := removeFile(ctx, e.store, e.content, rec, d.Path)
		if recordFailed(ff, d.Path) {
			left = true
		} else {
			deleted++
		}
		failures = append(failures, ff...)
	}
	return deleted, left, failures, nil
}

// removeFile deletes a file's content, its overlays when shared, and its
// record. Every step is attempted regardless of earlier failures.
func removeFile(ctx context.Context, store repositories.DocumentStore, content repositories.ContentLocator, rec *models.FileRecord, docPath string) []domain.PathFailure {
	var failures []domain.PathFailure
	if rec.StoragePath != "" && content != nil {
		if err := content.Delete(ctx, rec.StoragePath); err != nil && !errors.Is(err, domain.ErrNotFound) {
			failures = append(failures, domain.PathFailure{Path: "content/" + rec.StoragePath, Err: err})
		}
	}
	if rec.IsShared {
		failures = append(failures, deleteOverlays(ctx, store, rec.ID)...)
	}
	if err := store.Delete(ctx, docPath); err != nil {
		failures = append(failures, domain.PathFailure{Path: docPath, Err: err})
	}
	return failures
}

func recordFailed(failures []domain.PathFailure, docPath string) bool {
	for _, f := range failures {
		if f.Path == docPath {
			return true
		}
	}
	return false
}
