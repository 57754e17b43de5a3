package handler

import (
	"log/slog"
	"net/http"

	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/handler/sse"
	"scorelib/internal/httputil"
	"scorelib/internal/metrics"
	"scorelib/internal/service/library"
)

// LibraryHandler serves tree reads: snapshots, live streams and search.
type LibraryHandler struct {
	loader    libsvc.TreeLoader
	sseConfig *sse.Config
	logger    *slog.Logger
}

func NewLibraryHandler(loader libsvc.TreeLoader, sseConfig *sse.Config, logger *slog.Logger) *LibraryHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &LibraryHandler{loader: loader, sseConfig: sseConfig, logger: logger}
}

// GetTree returns one grouped snapshot of a folder (root when folder_id is absent).
// GET /api/library/tree?folder_id=
func (h *LibraryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loader.Snapshot(r.Context(), httputil.GetUserID(r), folderParam(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, snap)
}

// Search filters the current folder's snapshot by name.
// GET /api/library/search?q=&folder_id=
func (h *LibraryHandler) Search(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loader.Snapshot(r.Context(), httputil.GetUserID(r), folderParam(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, library.Filter(snap.Folders, snap.Files, r.URL.Query().Get("q")))
}

// StreamTree sends a "tree" event for every snapshot the live view applies,
// until the client disconnects.
// GET /api/library/tree/stream?folder_id=
func (h *LibraryHandler) StreamTree(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	folderID := folderParam(r)
	ctx := r.Context()

	view := library.NewView(h.loader, userID, h.logger)
	defer view.Close()

	// Resolve before the headers go out so access errors keep their status.
	if err := view.Navigate(ctx, folderID); err != nil {
		handleError(w, err)
		return
	}

	stream, err := sse.Open(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.LiveViewOpened()
	defer metrics.LiveViewClosed()

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(stream, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("tree stream opened", "user_id", userID, "folder_id", folderID)
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("tree stream closed", "user_id", userID)
			return
		case <-stopped:
			return
		case snap, ok := <-view.Updates():
			if !ok {
				return
			}
			if err := stream.WriteEvent("tree", snap); err != nil {
				h.logger.Debug("tree stream write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

// Health reports liveness.
// GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
