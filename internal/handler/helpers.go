package handler

import (
	"net/http"
	"strings"

	"scorelib/internal/httputil"
)

// PathParam returns a required path value, answering 400 when it is empty.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	v := strings.TrimSpace(r.PathValue(name))
	if v == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return v, true
}

// folderParam reads the optional folder_id query parameter. Absent means root.
func folderParam(r *http.Request) *string {
	return httputil.OptionalQuery(r, "folder_id")
}

// nonEmpty maps "" to nil for folder ids decoded from JSON bodies.
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
