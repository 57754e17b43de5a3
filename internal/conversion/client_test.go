package conversion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "No file uploaded"})
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if string(body) == "unreadable" {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Conversion failed", "details": "no staves"})
			return
		}
		name := strings.TrimSuffix(header.Filename, ".pdf") + ".mxl"
		_ = json.NewEncoder(w).Encode(map[string]string{"fileName": name})
	})
	mux.HandleFunc("GET /download/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "Prelude 1.mxl" {
			http.Error(w, `{"error":"File not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("PK-musicxml"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ConvertAndDownload(t *testing.T) {
	client := NewClient(newServer(t).URL + "/")
	ctx := context.Background()

	name, err := client.Convert(ctx, "Prelude 1.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Prelude 1.mxl", name)

	rc, err := client.Download(ctx, name)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "PK-musicxml", string(body))
}

func TestClient_Errors(t *testing.T) {
	client := NewClient(newServer(t).URL)
	ctx := context.Background()

	_, err := client.Convert(ctx, "bad.pdf", strings.NewReader("unreadable"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no staves")

	_, err = client.Download(ctx, "missing.mxl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
