package library

import (
	"io"

	models "scorelib/internal/domain/models/library"
)

// FileRef addresses a file through the folder it was listed in.
type FileRef struct {
	FileID   string  `json:"file_id"`
	FolderID *string `json:"folder_id"` // nil = root
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	UserID         string  `json:"-"`
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"` // null for root folders
}

// Invite is one email to share with.
type Invite struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// CreateSharedFolderRequest represents a new top-level share
type CreateSharedFolderRequest struct {
	UserID    string   `json:"-"`
	UserEmail string   `json:"-"`
	Name      string   `json:"name"`
	Invites   []Invite `json:"invites"`
}

// SharedFolderResult carries the created folder and the invites that could
// not be resolved.
type SharedFolderResult struct {
	Folder     *models.Folder `json:"folder"`
	Unresolved []string       `json:"unresolved"`
	Warning    error          `json:"-"` // *domain.UnresolvedCollaboratorError when Unresolved is non-empty
}

// UpdateRoleRequest represents a collaborator role change
type UpdateRoleRequest struct {
	UserID         string      `json:"-"`
	FolderID       string      `json:"-"`
	CollaboratorID string      `json:"-"`
	Role           models.Role `json:"role"`
}

// UploadFileRequest carries file bytes into a folder
type UploadFileRequest struct {
	UserID      string
	FolderID    *string // nil = root
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// RenameFileRequest represents a rename
type RenameFileRequest struct {
	UserID string `json:"-"`
	FileRef
	Name string `json:"name"`
}

// MoveFileRequest reparents a file within its namespace
type MoveFileRequest struct {
	UserID string `json:"-"`
	FileRef
	DestinationFolderID *string `json:"destination_folder_id"` // nil = root
}

// SetFlagRequest toggles a per-viewer flag
type SetFlagRequest struct {
	UserID string `json:"-"`
	FileRef
	Flag  models.Flag `json:"flag"`
	Value bool        `json:"value"`
}
