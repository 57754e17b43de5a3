package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// MaxUploadBytes caps a single uploaded score. Scanned multi-page PDFs
	// rarely exceed a few tens of megabytes.
	MaxUploadBytes = 64 << 20

	// MaxInvites caps the collaborators named when a share is created.
	MaxInvites = 50
)
