package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"scorelib/internal/domain"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/httputil"
)

// UsageHandler records practice days and serves the streak calendar.
type UsageHandler struct {
	usage  libsvc.UsageService
	now    func() time.Time
	logger *slog.Logger
}

func NewUsageHandler(usage libsvc.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// LogToday marks today as a practice day. Repeating it is harmless.
// POST /api/usage/today
func (h *UsageHandler) LogToday(w http.ResponseWriter, r *http.Request) {
	if err := h.usage.LogUsage(r.Context(), httputil.GetUserID(r), h.now()); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCalendar returns the month grid, current streak and daily message.
// GET /api/usage?year=&month= (defaults to the current month)
func (h *UsageHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	year, month := today.Year(), today.Month()

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			handleError(w, &domain.ValidationError{Message: "year must be a four-digit number"})
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			handleError(w, &domain.ValidationError{Message: "month must be between 1 and 12"})
			return
		}
		month = time.Month(m)
	}

	cal, err := h.usage.Calendar(r.Context(), httputil.GetUserID(r), year, month, today)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, cal)
}
