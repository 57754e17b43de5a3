package handler

import (
	"log/slog"
	"net/http"

	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService libsvc.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService libsvc.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
// Returns 201 if created, 409 with the existing folder id if the name is taken
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req libsvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.ParentFolderID = nonEmpty(req.ParentFolderID)

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// CreateSharedFolder creates a top-level folder shared with the invited emails.
// POST /api/folders/shared
// Emails without an account come back in "unresolved"; the folder is still created.
func (h *FolderHandler) CreateSharedFolder(w http.ResponseWriter, r *http.Request) {
	var req libsvc.CreateSharedFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.UserEmail = httputil.GetUserEmail(r)

	res, err := h.folderService.CreateSharedFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	if res.Warning != nil {
		h.logger.Info("shared folder created with unresolved invites",
			"folder_id", res.Folder.ID,
			"unresolved", len(res.Unresolved),
		)
	}
	if res.Unresolved == nil {
		res.Unresolved = []string{}
	}
	httputil.RespondJSON(w, http.StatusCreated, res)
}

// DeleteFolder deletes a folder and everything under it
// DELETE /api/folders/{id}
// Returns 204, or 207 with failed_paths when some documents could not be removed
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), httputil.GetUserID(r), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateRoleBody struct {
	Role models.Role `json:"role"`
}

// UpdateCollaboratorRole changes a collaborator's role on a top-level share.
// PATCH /api/folders/{id}/collaborators/{userId}
func (h *FolderHandler) UpdateCollaboratorRole(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}
	collaborator, ok := PathParam(w, r, "userId", "Collaborator ID")
	if !ok {
		return
	}

	var body updateRoleBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.folderService.UpdateCollaboratorRole(r.Context(), &libsvc.UpdateRoleRequest{
		UserID:         httputil.GetUserID(r),
		FolderID:       id,
		CollaboratorID: collaborator,
		Role:           body.Role,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}
