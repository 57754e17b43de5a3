package handler

import (
	"log/slog"
	"net/http"

	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/httputil"
)

// ConversionHandler starts score conversions and reports their progress.
type ConversionHandler struct {
	conversions libsvc.ConversionService
	logger      *slog.Logger
}

func NewConversionHandler(conversions libsvc.ConversionService, logger *slog.Logger) *ConversionHandler {
	return &ConversionHandler{conversions: conversions, logger: logger}
}

type convertBody struct {
	FolderID *string `json:"folder_id"`
}

// ConvertFile queues a MusicXML conversion of a score.
// POST /api/files/{id}/convert
// Returns 202 with the job; poll GET /api/conversions/{id}
func (h *ConversionHandler) ConvertFile(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	var body convertBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.conversions.Submit(r.Context(), httputil.GetUserID(r), libsvc.FileRef{FileID: id, FolderID: nonEmpty(body.FolderID)})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, job)
}

// GetJob returns a conversion job owned by the caller.
// GET /api/conversions/{id}
func (h *ConversionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Job ID")
	if !ok {
		return
	}

	job, err := h.conversions.Job(httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, job)
}
