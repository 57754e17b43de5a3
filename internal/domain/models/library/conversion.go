package library

import "time"

// ConversionStatus is the lifecycle state of a conversion job.
type ConversionStatus string

const (
	ConversionPending   ConversionStatus = "pending"
	ConversionRunning   ConversionStatus = "running"
	ConversionSucceeded ConversionStatus = "succeeded"
	ConversionFailed    ConversionStatus = "failed"
)

// Done reports whether the job reached a terminal state.
func (s ConversionStatus) Done() bool {
	return s == ConversionSucceeded || s == ConversionFailed
}

// ConversionJob tracks one score conversion. Jobs live in memory only.
type ConversionJob struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	FileID       string           `json:"fileId"`
	FolderID     *string          `json:"folderId"`
	Status       ConversionStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	ResultFileID string           `json:"resultFileId,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
