// Package library implements the score library: tree views, role checks,
// folder and file mutations, recursive deletion and per-viewer overlays.
package library

import (
	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/metrics"
)

// ResolveRole computes the role userID holds on folder. A nil folder is the
// user's own root. It never touches the store; callers load the folder first.
func ResolveRole(userID string, folder *models.Folder) models.Role {
	if folder == nil {
		return models.RoleEditor
	}
	if folder.OwnerUserID == userID {
		return models.RoleEditor
	}
	if len(folder.SharedWith) == 0 {
		return models.RoleNone
	}
	if c, ok := folder.Collaborator(userID); ok {
		return c.Role
	}
	return models.RoleNone
}

// authorize fails with a *domain.PermissionError unless userID holds at least
// required on folder.
func authorize(operation, userID string, folder *models.Folder, required models.Role) error {
	held := ResolveRole(userID, folder)
	allowed := held.Satisfies(required)
	metrics.RecordPermission(operation, allowed)
	if !allowed {
		return &domain.PermissionError{
			Operation: operation,
			Held:      string(held),
			Required:  string(required),
		}
	}
	return nil
}
