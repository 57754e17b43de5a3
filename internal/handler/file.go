package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"scorelib/internal/config"
	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/httputil"
)

// multipartOverhead leaves room for form fields and part headers around the file.
const multipartOverhead = 1 << 20

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService libsvc.FileService
	logger      *slog.Logger
}

func NewFileHandler(fileService libsvc.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{fileService: fileService, logger: logger}
}

// UploadFile stores a score in a folder
// POST /api/files (multipart: file, folder_id)
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			handleError(w, err)
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	folderID := r.FormValue("folder_id")
	rec, err := h.fileService.UploadFile(r.Context(), &libsvc.UploadFileRequest{
		UserID:      httputil.GetUserID(r),
		FolderID:    nonEmpty(&folderID),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, rec)
}

// GetFile returns a file as the caller sees it, with their flags merged in.
// GET /api/files/{id}?folder_id=
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	rec, err := h.fileService.GetFile(r.Context(), httputil.GetUserID(r), libsvc.FileRef{FileID: id, FolderID: folderParam(r)})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// RenameFile renames a file. An empty or unchanged name is a no-op.
// PATCH /api/files/{id}
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	var req libsvc.RenameFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.FileID = id
	req.FolderID = nonEmpty(req.FolderID)

	if err := h.fileService.RenameFile(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveFileBody struct {
	FolderID            *string                 `json:"folder_id"`
	DestinationFolderID httputil.OptionalString `json:"destination_folder_id"`
}

// MoveFile reparents a private file. destination_folder_id null moves it to the root.
// POST /api/files/{id}/move
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	var body moveFileBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !body.DestinationFolderID.Present {
		handleError(w, &domain.ValidationError{Message: "destination_folder_id is required (null for root)"})
		return
	}

	err := h.fileService.MoveFile(r.Context(), &libsvc.MoveFileRequest{
		UserID:              httputil.GetUserID(r),
		FileRef:             libsvc.FileRef{FileID: id, FolderID: nonEmpty(body.FolderID)},
		DestinationFolderID: body.DestinationFolderID.Value,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFile removes a file's content, overlays and record.
// DELETE /api/files/{id}?folder_id=
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	err := h.fileService.DeleteFile(r.Context(), httputil.GetUserID(r), libsvc.FileRef{FileID: id, FolderID: folderParam(r)})
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setFlagBody struct {
	FolderID *string     `json:"folder_id"`
	Flag     models.Flag `json:"flag"`
	Value    bool        `json:"value"`
}

// SetFlag toggles the caller's favorite or practiced flag on a file.
// PUT /api/files/{id}/flags
func (h *FileHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	var body setFlagBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.fileService.SetFlag(r.Context(), &libsvc.SetFlagRequest{
		UserID:  httputil.GetUserID(r),
		FileRef: libsvc.FileRef{FileID: id, FolderID: nonEmpty(body.FolderID)},
		Flag:    body.Flag,
		Value:   body.Value,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
