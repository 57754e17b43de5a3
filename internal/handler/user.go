package handler

import (
	"log/slog"
	"net/http"

	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/httputil"
)

// UserHandler keeps the caller's directory profile current.
type UserHandler struct {
	directory libsvc.UserDirectory
	logger    *slog.Logger
}

func NewUserHandler(directory libsvc.UserDirectory, logger *slog.Logger) *UserHandler {
	return &UserHandler{directory: directory, logger: logger}
}

type profileBody struct {
	DisplayName string `json:"display_name"`
}

// PutMe records the caller's email from the token so others can invite them.
// PUT /api/users/me
func (h *UserHandler) PutMe(w http.ResponseWriter, r *http.Request) {
	var body profileBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := httputil.GetUserEmail(r)
	if email == "" {
		httputil.RespondError(w, http.StatusBadRequest, "token carries no email")
		return
	}

	profile := &models.UserProfile{
		ID:          httputil.GetUserID(r),
		Email:       email,
		DisplayName: body.DisplayName,
	}
	if err := h.directory.SaveProfile(r.Context(), profile); err != nil {
		handleError(w, err)
		return
	}
	profile.Email = models.NormalizeEmail(profile.Email)
	httputil.RespondJSON(w, http.StatusOK, profile)
}
