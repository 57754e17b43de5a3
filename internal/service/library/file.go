package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scorelib/internal/config"
	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/metrics"
)

type fileService struct {
	locator
	content  repositories.ContentLocator
	overlays libsvc.OverlayService
	registry *filetypes.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewFileService creates the file mutation gateway
func NewFileService(
	store repositories.DocumentStore,
	content repositories.ContentLocator,
	overlays libsvc.OverlayService,
	registry *filetypes.Registry,
	logger *slog.Logger,
) libsvc.FileService {
	return &fileService{
		locator:  locator{store: store},
		content:  content,
		overlays: overlays,
		registry: registry,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UploadFile stores the bytes first and then the record. If the record write
// fails the stored content is removed again.
func (s *fileService) UploadFile(ctx context.Context, req *libsvc.UploadFileRequest) (rec *models.FileRecord, err error) {
	defer func() { metrics.RecordMutation("upload_file", err) }()

	if err := validateFileName(req.FileName); err != nil {
		return nil, err
	}
	if req.Size > config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}
	ft, ok := s.registry.Detect(req.FileName, req.ContentType)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrValidation, req.ContentType)
	}

	folder, err := s.resolveFolder(ctx, req.UserID, req.FolderID)
	if err != nil {
		return nil, err
	}
	if err := authorize("upload", req.UserID, folder, models.RoleEditor); err != nil {
		return nil, err
	}

	now := s.now()
	fileID, loc, err := s.newFileID(ctx, req.UserID, folder, now)
	if err != nil {
		return nil, err
	}

	var sharedFolderID *string
	if loc.shared {
		sharedFolderID = &folder.ID
	}
	storagePath := contentPath(req.UserID, fileID, sharedFolderID)
	url, err := s.content.Upload(ctx, storagePath, req.Content, req.Size, ft.MIME)
	if err != nil {
		return nil, fmt.Errorf("upload content: %w", err)
	}

	rec = &models.FileRecord{
		ID:             fileID,
		FileName:       req.FileName,
		FileType:       ft.MIME,
		FileURL:        url,
		StoragePath:    storagePath,
		UserID:         req.UserID,
		IsShared:       loc.shared,
		UploadedAt:     now,
		LastAccessedAt: now,
	}
	if folder != nil {
		id := folder.ID
		rec.ParentFolderID = &id
	}

	if err := s.store.Set(ctx, loc.path, rec.Data()); err != nil {
		if derr := s.content.Delete(ctx, storagePath); derr != nil {
			s.logger.Warn("failed to remove orphaned content", "path", storagePath, "error", derr)
		}
		return nil, fmt.Errorf("save file record: %w", err)
	}

	s.logger.Info("file uploaded",
		"id", fileID,
		"name", rec.FileName,
		"type", rec.FileType,
		"user_id", req.UserID,
		"folder_id", rec.ParentFolderID,
		"shared", rec.IsShared,
		"backend", s.content.Type(),
	)
	return rec, nil
}

// newFileID derives {user}_{unixMillis}, stepping the timestamp while the id
// is already taken in the destination namespace.
func (s *fileService) newFileID(ctx context.Context, userID string, folder *models.Folder, now time.Time) (string, *fileLocation, error) {
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("%s_%d", userID, ms)
		loc := fileLocationIn(userID, folder, id)
		_, err := s.store.Get(ctx, loc.path)
		if errors.Is(err, domain.ErrNotFound) {
			return id, loc, nil
		}
		if err != nil {
			return "", nil, err
		}
		ms++
	}
}

// GetFile returns the record as the user sees it: shared files carry the
// user's own flags. Opening a private file touches lastAccessedAt.
func (s *fileService) GetFile(ctx context.Context, userID string, ref libsvc.FileRef) (*models.FileRecord, error) {
	loc, err := s.locateFile(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if err := authorize("view", userID, loc.folder, models.RoleViewer); err != nil {
		return nil, err
	}
	rec, err := s.loadFile(ctx, loc)
	if err != nil {
		return nil, err
	}

	if loc.shared {
		patches, err := s.overlays.GetOverlays(ctx, []string{rec.ID}, userID)
		if err != nil {
			return nil, err
		}
		rec.ApplyOverlay(patches[rec.ID].Resolve())
		return rec, nil
	}

	now := s.now()
	if err := s.store.Update(ctx, loc.path, map[string]any{"lastAccessedAt": now.UnixMilli()}); err != nil {
		s.logger.Warn("failed to touch file", "id", rec.ID, "error", err)
	} else {
		rec.LastAccessedAt = now
	}
	return rec, nil
}

// RenameFile is a no-op for an empty or unchanged name.
func (s *fileService) RenameFile(ctx context.Context, req *libsvc.RenameFileRequest) (err error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil
	}

	loc, err := s.locateFile(ctx, req.UserID, req.FileRef)
	if err != nil {
		return err
	}
	if err := authorize("rename", req.UserID, loc.folder, models.RoleEditor); err != nil {
		return err
	}
	rec, err := s.loadFile(ctx, loc)
	if err != nil {
		return err
	}
	if rec.FileName == name {
		return nil
	}
	if err := validateFileName(name); err != nil {
		return err
	}

	defer func() { metrics.RecordMutation("rename_file", err) }()
	if err := s.store.Update(ctx, loc.path, map[string]any{"fileName": name}); err != nil {
		return fmt.Errorf("rename file %s: %w", rec.ID, err)
	}
	s.logger.Info("file renamed", "id", rec.ID, "from", rec.FileName, "to", name)
	return nil
}

// MoveFile reparents a file inside its own namespace. Shared files stay in
// the folder they were uploaded to.
func (s *fileService) MoveFile(ctx context.Context, req *libsvc.MoveFileRequest) (err error) {
	loc, err := s.locateFile(ctx, req.UserID, req.FileRef)
	if err != nil {
		return err
	}
	if err := authorize("move", req.UserID, loc.folder, models.RoleEditor); err != nil {
		return err
	}

	dest := req.DestinationFolderID
	if dest != nil && *dest == "" {
		dest = nil
	}
	if sameFolder(dest, req.FolderID) {
		return nil
	}
	if loc.shared {
		return &domain.ValidationError{Message: "files in a shared folder cannot be moved to another folder"}
	}

	destFolder, err := s.resolveFolder(ctx, req.UserID, dest)
	if err != nil {
		return err
	}
	if destFolder != nil && destFolder.IsShared {
		return &domain.ValidationError{Message: "private files cannot be moved into a shared folder"}
	}
	if err := authorize("move", req.UserID, destFolder, models.RoleEditor); err != nil {
		return err
	}

	defer func() { metrics.RecordMutation("move_file", err) }()
	var parent any
	if destFolder != nil {
		parent = destFolder.ID
	}
	if err := s.store.Update(ctx, loc.path, map[string]any{"parentFolderId": parent}); err != nil {
		return fmt.Errorf("move file %s: %w", req.FileID, err)
	}
	s.logger.Info("file moved", "id", req.FileID, "from", req.FolderID, "to", dest)
	return nil
}

func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return (a == nil || *a == "") && (b == nil || *b == "")
	}
	return *a == *b
}

// DeleteFile removes the content, then the record. A failed content delete
// does not stop the record delete; both are reported.
func (s *fileService) DeleteFile(ctx context.Context, userID string, ref libsvc.FileRef) (err error) {
	loc, err := s.locateFile(ctx, userID, ref)
	if err != nil {
		return err
	}
	if err := authorize("delete_file", userID, loc.folder, models.RoleEditor); err != nil {
		return err
	}
	rec, err := s.loadFile(ctx, loc)
	if err != nil {
		return err
	}

	defer func() { metrics.RecordMutation("delete_file", err) }()
	failures := removeFile(ctx, s.store, s.content, rec, loc.path)
	switch {
	case len(failures) == 0:
		s.logger.Info("file deleted", "id", rec.ID, "user_id", userID)
		return nil
	case len(failures) == 1 && failures[0].Path == loc.path:
		return fmt.Errorf("delete file %s: %w", rec.ID, failures[0].Err)
	default:
		s.logger.Warn("file deleted with failures", "id", rec.ID, "failed", len(failures))
		return &domain.PartialFailureError{
			Operation: fmt.Sprintf("delete file %s", rec.ID),
			Failures:  failures,
		}
	}
}

// SetFlag toggles a per-viewer flag. Viewers may set their own flags.
func (s *fileService) SetFlag(ctx context.Context, req *libsvc.SetFlagRequest) (err error) {
	if err := validateFlag(req.Flag); err != nil {
		return err
	}
	loc, err := s.locateFile(ctx, req.UserID, req.FileRef)
	if err != nil {
		return err
	}
	if err := authorize("set_flag", req.UserID, loc.folder, models.RoleViewer); err != nil {
		return err
	}

	defer func() { metrics.RecordMutation("set_flag", err) }()
	if !loc.shared {
		return s.store.Update(ctx, loc.path, map[string]any{string(req.Flag): req.Value})
	}
	if _, err := s.store.Get(ctx, loc.path); err != nil {
		return err
	}
	return s.overlays.SetOverlay(ctx, req.FileID, req.UserID, models.PatchFor(req.Flag, req.Value))
}
