package library

import "time"

type FileRecord struct {
	ID             string    `json:"id" doc:"-"`
	FileName       string    `json:"fileName" doc:"fileName"`
	FileType       string    `json:"fileType" doc:"fileType"`
	FileURL        string    `json:"fileURL" doc:"fileURL"`
	StoragePath    string    `json:"storagePath" doc:"storagePath"`
	ParentFolderID *string   `json:"parentFolderId" doc:"parentFolderId"`
	UserID         string    `json:"userId" doc:"userId"`
	IsShared       bool      `json:"isShared" doc:"isShared"`
	UploadedAt     time.Time `json:"uploadedAt" doc:"uploadedAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt" doc:"lastAccessedAt"`
	Practiced      bool      `json:"practiced" doc:"practiced"`
	IsFavorite     bool      `json:"isFavorite" doc:"isFavorite"`
}

// Data encodes the canonical record. Shared records never carry the
// per-viewer flags; those live in overlays.
func (r *FileRecord) Data() map[string]any {
	data := map[string]any{
		"fileName":       r.FileName,
		"fileType":       r.FileType,
		"fileURL":        r.FileURL,
		"storagePath":    r.StoragePath,
		"parentFolderId": nullable(r.ParentFolderID),
		"userId":         r.UserID,
		"isShared":       r.IsShared,
		"uploadedAt":     r.UploadedAt.UnixMilli(),
		"lastAccessedAt": r.LastAccessedAt.UnixMilli(),
	}
	if !r.IsShared {
		data["practiced"] = r.Practiced
		data["isFavorite"] = r.IsFavorite
	}
	return data
}

// DecodeFileRecord builds a FileRecord from a stored document.
func DecodeFileRecord(id string, data map[string]any) (*FileRecord, error) {
	var r FileRecord
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

// ApplyOverlay replaces the per-viewer flags with the viewer's overlay.
func (r *FileRecord) ApplyOverlay(o Overlay) {
	r.Practiced = o.Practiced
	r.IsFavorite = o.IsFavorite
}
