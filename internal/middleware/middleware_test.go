package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"scorelib/internal/domain"
	"scorelib/internal/domain/models"
	"scorelib/internal/httputil"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (*models.AuthClaims, error) {
	if token != "good" {
		return nil, domain.ErrUnauthorized
	}
	c := &models.AuthClaims{Email: "u1@example.com"}
	c.Subject = "u1"
	return c, nil
}

func (fakeVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	var gotUser, gotEmail string
	h := AuthMiddleware(fakeVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotEmail = httputil.GetUserID(r), httputil.GetUserEmail(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		method   string
		target   string
		header   string
		wantCode int
		wantUser string
	}{
		{"public route", http.MethodGet, "/health", "", http.StatusNoContent, ""},
		{"preflight", http.MethodOptions, "/api/folders", "", http.StatusNoContent, ""},
		{"missing token", http.MethodGet, "/api/library/tree", "", http.StatusUnauthorized, ""},
		{"bad token", http.MethodGet, "/api/library/tree", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", http.MethodGet, "/api/library/tree", "Basic good", http.StatusUnauthorized, ""},
		{"bearer", http.MethodGet, "/api/library/tree", "bearer good", http.StatusNoContent, "u1"},
		{"query token", http.MethodGet, "/api/library/tree/stream?access_token=good", "", http.StatusNoContent, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotEmail = "", ""
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, gotUser)
			if tt.wantUser != "" {
				assert.Equal(t, "u1@example.com", gotEmail)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	h := Recovery(slog.New(slog.NewTextHandler(&logs, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestRequestMetrics_RecordsStatusAndFlushes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "ok")
	})

	w := httptest.NewRecorder()
	RequestMetrics(mux).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/7", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, w.Flushed)
}
