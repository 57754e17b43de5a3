package library

import (
	"context"
	"time"

	models "scorelib/internal/domain/models/library"
)

// TreeLoader resolves what a user sees at one position of the library tree.
type TreeLoader interface {
	// Load opens a live view of folderID (nil for root). The channel emits a
	// grouped snapshot on every change and closes when ctx is done.
	Load(ctx context.Context, userID string, folderID *string) (<-chan models.TreeSnapshot, error)

	// Snapshot returns the current view once.
	Snapshot(ctx context.Context, userID string, folderID *string) (*models.TreeSnapshot, error)

	// ResolveFolder loads the folder a request refers to. Root resolves to nil.
	ResolveFolder(ctx context.Context, userID string, folderID *string) (*models.Folder, error)
}

// FolderService handles folder mutations
type FolderService interface {
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// CreateSharedFolder creates a top-level share. Invites that match no
	// account are returned in the result, never as an error.
	CreateSharedFolder(ctx context.Context, req *CreateSharedFolderRequest) (*SharedFolderResult, error)

	// DeleteFolder removes a folder and everything under it.
	DeleteFolder(ctx context.Context, userID, folderID string) error

	// UpdateCollaboratorRole rewrites one collaborator's role on a share.
	UpdateCollaboratorRole(ctx context.Context, req *UpdateRoleRequest) (*models.Folder, error)
}

// FileService handles file mutations
type FileService interface {
	UploadFile(ctx context.Context, req *UploadFileRequest) (*models.FileRecord, error)
	GetFile(ctx context.Context, userID string, ref FileRef) (*models.FileRecord, error)
	RenameFile(ctx context.Context, req *RenameFileRequest) error
	MoveFile(ctx context.Context, req *MoveFileRequest) error
	DeleteFile(ctx context.Context, userID string, ref FileRef) error
	SetFlag(ctx context.Context, req *SetFlagRequest) error
}

// DeletionEngine removes a folder subtree depth-first.
type DeletionEngine interface {
	// DeleteFolderRecursively keeps going past individual failures and
	// reports them as a *domain.PartialFailureError.
	DeleteFolderRecursively(ctx context.Context, userID, folderID string, isShared bool) error
}

// OverlayService stores per-viewer flags for shared files.
type OverlayService interface {
	// GetOverlays returns the viewer's overlay per file id. Missing overlays
	// are returned as empty patches.
	GetOverlays(ctx context.Context, fileIDs []string, viewerID string) (map[string]models.OverlayPatch, error)

	SetOverlay(ctx context.Context, fileID, viewerID string, patch models.OverlayPatch) error
}

// UserDirectory maps emails to accounts for share invites.
type UserDirectory interface {
	SaveProfile(ctx context.Context, profile *models.UserProfile) error

	// LookupByEmail returns domain.ErrNotFound when no account uses email.
	LookupByEmail(ctx context.Context, email string) (*models.UserProfile, error)
}

// AccountLookup finds accounts in the identity provider.
type AccountLookup interface {
	FindUserByEmail(ctx context.Context, email string) (string, error)
}

// UsageService records practice days and derives streaks.
type UsageService interface {
	LogUsage(ctx context.Context, userID string, day time.Time) error
	UsedDays(ctx context.Context, userID string, year int, month time.Month) ([]int, error)
	Calendar(ctx context.Context, userID string, year int, month time.Month, today time.Time) (*models.UsageCalendar, error)
	CurrentStreak(ctx context.Context, userID string, today time.Time) (int, error)
}

// ConversionService runs score conversions in the background.
type ConversionService interface {
	Submit(ctx context.Context, userID string, ref FileRef) (*models.ConversionJob, error)

	// Job returns a job owned by userID.
	Job(userID, jobID string) (*models.ConversionJob, error)
}
