package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/metrics"
	"scorelib/internal/repository/docstore"
)

type folderService struct {
	locator
	directory libsvc.UserDirectory
	engine    libsvc.DeletionEngine
	logger    *slog.Logger
	now       func() time.Time
}

// NewFolderService creates the folder mutation gateway
func NewFolderService(
	store repositories.DocumentStore,
	directory libsvc.UserDirectory,
	engine libsvc.DeletionEngine,
	logger *slog.Logger,
) libsvc.FolderService {
	return &folderService{
		locator:   locator{store: store},
		directory: directory,
		engine:    engine,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateFolder creates a folder under a parent the user can edit. Folders
// created inside a share inherit its owner and collaborators.
func (s *folderService) CreateFolder(ctx context.Context, req *libsvc.CreateFolderRequest) (folder *models.Folder, err error) {
	if err := validateCreateFolder(req); err != nil {
		return nil, err
	}
	if req.ParentFolderID != nil && *req.ParentFolderID == "" {
		req.ParentFolderID = nil
	}

	parent, err := s.resolveFolder(ctx, req.UserID, req.ParentFolderID)
	if err != nil {
		return nil, fmt.Errorf("parent folder: %w", err)
	}
	if err := authorize("create_folder", req.UserID, parent, models.RoleEditor); err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, req.UserID, parent, req.Name); err != nil {
		return nil, err
	}

	defer func() { metrics.RecordMutation("create_folder", err) }()
	folder = &models.Folder{
		Name:        req.Name,
		OwnerUserID: req.UserID,
		CreatedBy:   req.UserID,
		CreatedAt:   s.now(),
	}
	shared := false
	if parent != nil {
		id := parent.ID
		folder.ParentFolderID = &id
		folder.OwnerUserID = parent.OwnerUserID
		if parent.IsShared {
			shared = true
			folder.SharedWith = append([]models.Collaborator(nil), parent.SharedWith...)
			folder.IsShared = true
		}
	}

	doc, err := s.store.Add(ctx, folderCollection(folder.OwnerUserID, shared), folder.Data())
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	folder.ID = doc.ID

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", folder.OwnerUserID,
		"created_by", req.UserID,
		"parent_id", folder.ParentFolderID,
		"shared", shared,
	)
	return folder, nil
}

// checkDuplicate fails with a ConflictError when a sibling already uses name.
// At root the user's private folders and own shares are both siblings.
func (s *folderService) checkDuplicate(ctx context.Context, userID string, parent *models.Folder, name string) error {
	type scope struct {
		collection string
		filters    []repositories.Filter
	}
	var scopes []scope
	switch {
	case parent == nil:
		scopes = []scope{
			{privateFolders(userID), []repositories.Filter{
				repositories.Where("parentFolderId", nil),
				repositories.Where("name", name),
			}},
			{foldersCollection, []repositories.Filter{
				repositories.Where("ownerUserId", userID),
				repositories.Where("parentFolderId", nil),
				repositories.Where("name", name),
			}},
		}
	default:
		scopes = []scope{
			{folderCollection(parent.OwnerUserID, parent.IsShared), []repositories.Filter{
				repositories.Where("parentFolderId", parent.ID),
				repositories.Where("name", name),
			}},
		}
	}

	for _, sc := range scopes {
		docs, err := s.store.Query(ctx, sc.collection, sc.filters...)
		if err != nil {
			return fmt.Errorf("check duplicate name: %w", err)
		}
		if len(docs) > 0 {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("folder %q already exists", name),
				ResourceType: "folder",
				ResourceID:   docs[0].ID,
			}
		}
	}
	return nil
}

// CreateSharedFolder creates a top-level share. When no invite resolves the
// folder is created private.
func (s *folderService) CreateSharedFolder(ctx context.Context, req *libsvc.CreateSharedFolderRequest) (result *libsvc.SharedFolderResult, err error) {
	if err := validateCreateSharedFolder(req); err != nil {
		return nil, err
	}
	if err := authorize("create_shared_folder", req.UserID, nil, models.RoleEditor); err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, req.UserID, nil, req.Name); err != nil {
		return nil, err
	}

	collaborators, unresolved, err := s.resolveInvites(ctx, req)
	if err != nil {
		return nil, err
	}

	defer func() { metrics.RecordMutation("create_shared_folder", err) }()
	folder := &models.Folder{
		Name:        req.Name,
		OwnerUserID: req.UserID,
		SharedWith:  collaborators,
		IsShared:    len(collaborators) > 0,
		CreatedBy:   req.UserID,
		CreatedAt:   s.now(),
	}
	doc, err := s.store.Add(ctx, folderCollection(req.UserID, folder.IsShared), folder.Data())
	if err != nil {
		return nil, fmt.Errorf("create shared folder: %w", err)
	}
	folder.ID = doc.ID

	result = &libsvc.SharedFolderResult{Folder: folder, Unresolved: unresolved}
	if len(unresolved) > 0 {
		result.Warning = &domain.UnresolvedCollaboratorError{Emails: unresolved}
		s.logger.Warn("share created with unresolved invites", "id", folder.ID, "unresolved", unresolved)
	}

	s.logger.Info("shared folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", req.UserID,
		"collaborators", len(collaborators),
	)
	return result, nil
}

// resolveInvites maps invite emails to collaborators. The owner's own email
// and repeated emails are skipped.
func (s *folderService) resolveInvites(ctx context.Context, req *libsvc.CreateSharedFolderRequest) ([]models.Collaborator, []string, error) {
	self := models.NormalizeEmail(req.UserEmail)
	seen := make(map[string]bool)
	var collaborators []models.Collaborator
	var unresolved []string

	for _, inv := range req.Invites {
		email := models.NormalizeEmail(inv.Email)
		if seen[email] || (self != "" && email == self) {
			continue
		}
		seen[email] = true

		profile, err := s.directory.LookupByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			unresolved = append(unresolved, email)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if profile.ID == req.UserID {
			continue
		}
		if _, dup := indexOf(collaborators, profile.ID); dup {
			continue
		}
		collaborators = append(collaborators, models.Collaborator{
			UserID: profile.ID,
			Email:  email,
			Role:   inv.Role,
		})
	}
	return collaborators, unresolved, nil
}

func indexOf(collaborators []models.Collaborator, userID string) (int, bool) {
	for i, c := range collaborators {
		if c.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

// DeleteFolder removes a folder the user can edit, with everything under it.
func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID string) (err error) {
	if folderID == "" {
		return &domain.ValidationError{Message: "folder id is required"}
	}
	folder, err := s.resolveFolder(ctx, userID, &folderID)
	if err != nil {
		return err
	}
	if err := authorize("delete_folder", userID, folder, models.RoleEditor); err != nil {
		return err
	}

	defer func() { metrics.RecordMutation("delete_folder", err) }()
	return s.engine.DeleteFolderRecursively(ctx, folder.OwnerUserID, folder.ID, folder.IsShared)
}

// UpdateCollaboratorRole changes one collaborator's role on a top-level
// share and rewrites the copy held by every nested shared folder.
func (s *folderService) UpdateCollaboratorRole(ctx context.Context, req *libsvc.UpdateRoleRequest) (folder *models.Folder, err error) {
	if err := validateUpdateRole(req); err != nil {
		return nil, err
	}
	folder, err = s.resolveFolder(ctx, req.UserID, &req.FolderID)
	if err != nil {
		return nil, err
	}
	if err := authorize("update_role", req.UserID, folder, models.RoleEditor); err != nil {
		return nil, err
	}
	if folder.ParentFolderID != nil {
		return nil, &domain.ValidationError{Message: "roles are managed on the top-level shared folder"}
	}
	i, ok := indexOf(folder.SharedWith, req.CollaboratorID)
	if !ok {
		return nil, &domain.NotFoundError{
			Message: fmt.Sprintf("user %s is not a collaborator on folder %s", req.CollaboratorID, folder.ID),
		}
	}
	if folder.SharedWith[i].Role == req.Role {
		return folder, nil
	}

	defer func() { metrics.RecordMutation("update_role", err) }()
	folder.SharedWith = append([]models.Collaborator(nil), folder.SharedWith...)
	folder.SharedWith[i].Role = req.Role
	patch := sharePatch(folder)

	if err := s.store.Update(ctx, docstore.Join(foldersCollection, folder.ID), patch); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.logger.Info("collaborator role updated",
		"folder_id", folder.ID,
		"collaborator_id", req.CollaboratorID,
		"role", req.Role,
		"by", req.UserID,
	)

	if failures := s.propagateShare(ctx, folder.ID, patch); len(failures) > 0 {
		return folder, &domain.PartialFailureError{
			Operation: fmt.Sprintf("propagate role on folder %s", folder.ID),
			Failures:  failures,
		}
	}
	return folder, nil
}

// sharePatch holds the share fields a role change rewrites.
func sharePatch(folder *models.Folder) map[string]any {
	data := folder.Data()
	return map[string]any{
		"isShared":          data["isShared"],
		"sharedWith":        data["sharedWith"],
		"sharedWithUserIds": data["sharedWithUserIds"],
	}
}

// propagateShare applies patch to every shared descendant of rootID.
func (s *folderService) propagateShare(ctx context.Context, rootID string, patch map[string]any) []domain.PathFailure {
	var failures []domain.PathFailure
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.store.Query(ctx, foldersCollection, repositories.Where("parentFolderId", id))
		if err != nil {
			failures = append(failures, domain.PathFailure{Path: foldersCollection, Err: err})
			continue
		}
		for _, child := range children {
			if err := s.store.Update(ctx, child.Path, patch); err != nil {
				failures = append(failures, domain.PathFailure{Path: child.Path, Err: err})
			}
			stack = append(stack, child.ID)
		}
	}
	return failures
}
