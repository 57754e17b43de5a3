package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/httputil"
	"scorelib/internal/repository/memory"
	"scorelib/internal/service/library"
	"scorelib/internal/service/usage"
	"scorelib/internal/storage/local"
)

type fixture struct {
	mux     *http.ServeMux
	folders libsvc.FolderService
	files   libsvc.FileService
	dir     libsvc.UserDirectory
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	registry, err := filetypes.NewRegistry()
	require.NoError(t, err)
	content, err := local.New(t.TempDir(), "http://localhost/content")
	require.NoError(t, err)

	store := memory.NewStore(logger)
	dir := library.NewUserDirectory(store, nil, logger)
	overlays := library.NewOverlayService(store, logger)
	loader := library.NewTreeLoader(store, overlays, logger)
	engine := library.NewDeletionEngine(store, content, logger)
	folders := library.NewFolderService(store, dir, engine, logger)
	files := library.NewFileService(store, content, overlays, registry, logger)

	lh := NewLibraryHandler(loader, nil, logger)
	fh := NewFolderHandler(folders, logger)
	fileH := NewFileHandler(files, logger)
	uh := NewUsageHandler(usage.NewService(store, logger), logger)
	uh.now = func() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC) }
	users := NewUserHandler(dir, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/library/tree", lh.GetTree)
	mux.HandleFunc("GET /api/library/tree/stream", lh.StreamTree)
	mux.HandleFunc("GET /api/library/search", lh.Search)
	mux.HandleFunc("POST /api/folders", fh.CreateFolder)
	mux.HandleFunc("POST /api/folders/shared", fh.CreateSharedFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", fh.DeleteFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/collaborators/{userId}", fh.UpdateCollaboratorRole)
	mux.HandleFunc("POST /api/files", fileH.UploadFile)
	mux.HandleFunc("GET /api/files/{id}", fileH.GetFile)
	mux.HandleFunc("PATCH /api/files/{id}", fileH.RenameFile)
	mux.HandleFunc("POST /api/files/{id}/move", fileH.MoveFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileH.DeleteFile)
	mux.HandleFunc("PUT /api/files/{id}/flags", fileH.SetFlag)
	mux.HandleFunc("POST /api/usage/today", uh.LogToday)
	mux.HandleFunc("GET /api/usage", uh.GetCalendar)
	mux.HandleFunc("PUT /api/users/me", users.PutMe)

	return &fixture{mux: mux, folders: folders, files: files, dir: dir}
}

// do sends a request as userID and returns the recorder.
func (f *fixture) do(t *testing.T, userID, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req = httputil.WithUser(req, userID, userID+"@example.com")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.dir.SaveProfile(context.Background(), &models.UserProfile{ID: id, Email: id + "@example.com"}))
}

func (f *fixture) uploadRoot(t *testing.T, userID, name string) *models.FileRecord {
	t.Helper()
	rec, err := f.files.UploadFile(context.Background(), &libsvc.UploadFileRequest{
		UserID: userID, FileName: name, Size: int64(len(name)), Content: strings.NewReader(name),
	})
	require.NoError(t, err)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateFolder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "u1", http.MethodPost, "/api/folders", map[string]any{"name": "Etudes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	folder := decode[models.Folder](t, rec)
	assert.Equal(t, "Etudes", folder.Name)
	assert.Equal(t, "u1", folder.OwnerUserID)

	t.Run("duplicate", func(t *testing.T) {
		rec := f.do(t, "u1", http.MethodPost, "/api/folders", map[string]any{"name": "Etudes"})
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, folder.ID, body["existing_id"])
	})

	t.Run("empty parent means root", func(t *testing.T) {
		rec := f.do(t, "u1", http.MethodPost, "/api/folders", map[string]any{"name": "Sonatas", "parent_folder_id": ""})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, decode[models.Folder](t, rec).ParentFolderID)
	})

	t.Run("invalid name", func(t *testing.T) {
		rec := f.do(t, "u1", http.MethodPost, "/api/folders", map[string]any{"name": "a/b"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := f.do(t, "u1", http.MethodPost, "/api/folders", map[string]any{"name": "X", "color": "red"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateSharedFolder(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u2")

	rec := f.do(t, "u1", http.MethodPost, "/api/folders/shared", map[string]any{
		"name": "Quartet",
		"invites": []map[string]string{
			{"email": "u2@example.com", "role": "editor"},
			{"email": "ghost@example.com", "role": "viewer"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		Folder     models.Folder `json:"folder"`
		Unresolved []string      `json:"unresolved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"ghost@example.com"}, res.Unresolved)
	assert.True(t, res.Folder.IsShared)
	require.Len(t, res.Folder.SharedWith, 1)
	assert.Equal(t, "u2", res.Folder.SharedWith[0].UserID)

	t.Run("collaborator role", func(t *testing.T) {
		target := "/api/folders/" + res.Folder.ID + "/collaborators/u2"

		rec := f.do(t, "u2", http.MethodPatch, target, map[string]any{"role": "viewer"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, models.RoleViewer, decode[models.Folder](t, rec).SharedWith[0].Role)

		rec = f.do(t, "u2", http.MethodPatch, target, map[string]any{"role": "editor"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, "u1", http.MethodPatch, "/api/folders/"+res.Folder.ID+"/collaborators/u9", map[string]any{"role": "editor"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteFolder(t *testing.T) {
	f := newFixture(t)
	folder, err := f.folders.CreateFolder(context.Background(), &libsvc.CreateFolderRequest{UserID: "u1", Name: "Old"})
	require.NoError(t, err)

	rec := f.do(t, "u2", http.MethodDelete, "/api/folders/"+folder.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "u1", http.MethodDelete, "/api/folders/"+folder.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "u1", http.MethodGet, "/api/library/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.TreeSnapshot](t, rec).Folders)
}

func TestUploadFile(t *testing.T) {
	f := newFixture(t)

	upload := func(t *testing.T, name string, data []byte) *httptest.ResponseRecorder {
		t.Helper()
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("folder_id", ""))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/files", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req = httputil.WithUser(req, "u1", "u1@example.com")
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(t, "Nocturne.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[models.FileRecord](t, rec)
	assert.Equal(t, "Nocturne.pdf", got.FileName)
	assert.Nil(t, got.ParentFolderID)

	rec = upload(t, "notes.docx", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("missing file part", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/files", strings.NewReader("folder_id="))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req = httputil.WithUser(req, "u1", "u1@example.com")
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFileLifecycle(t *testing.T) {
	f := newFixture(t)
	file := f.uploadRoot(t, "u1", "Prelude.pdf")
	dest, err := f.folders.CreateFolder(context.Background(), &libsvc.CreateFolderRequest{UserID: "u1", Name: "Bach"})
	require.NoError(t, err)
	base := "/api/files/" + file.ID

	rec := f.do(t, "u1", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Prelude.pdf", decode[models.FileRecord](t, rec).FileName)

	rec = f.do(t, "u1", http.MethodPatch, base, map[string]any{"name": "Prelude in C.pdf"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, "u1", http.MethodPut, base+"/flags", map[string]any{"flag": "isFavorite", "value": true})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, "u1", http.MethodPut, base+"/flags", map[string]any{"flag": "starred", "value": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "u1", http.MethodPost, base+"/move", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "u1", http.MethodPost, base+"/move", map[string]any{"destination_folder_id": dest.ID})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, "u1", http.MethodGet, base+"?folder_id="+dest.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[models.FileRecord](t, rec)
	assert.Equal(t, "Prelude in C.pdf", moved.FileName)
	assert.True(t, moved.IsFavorite)
	require.NotNil(t, moved.ParentFolderID)
	assert.Equal(t, dest.ID, *moved.ParentFolderID)

	rec = f.do(t, "u1", http.MethodPost, base+"/move", map[string]any{"folder_id": dest.ID, "destination_folder_id": nil})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, "u1", http.MethodGet, "/api/library/search?q=prelude", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	search := decode[models.SearchResult](t, rec)
	assert.True(t, search.SearchActive)
	assert.Len(t, search.Files, 1)

	rec = f.do(t, "u1", http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "u1", http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "u1", http.MethodPost, "/api/usage/today", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "u1", http.MethodGet, "/api/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cal := decode[models.UsageCalendar](t, rec)
	assert.Equal(t, 2024, cal.Year)
	assert.Equal(t, time.March, cal.Month)
	assert.Equal(t, 1, cal.CurrentStreak)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"explicit month", "?year=2024&month=2", http.StatusOK},
		{"bad month", "?month=13", http.StatusBadRequest},
		{"bad year", "?year=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "u1", http.MethodGet, "/api/usage"+tt.query, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestPutMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "u7", http.MethodPut, "/api/users/me", map[string]any{"display_name": "Clara"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	profile, err := f.dir.LookupByEmail(context.Background(), "U7@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u7", profile.ID)
	assert.Equal(t, "Clara", profile.DisplayName)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStreamTree(t *testing.T) {
	f := newFixture(t)
	f.uploadRoot(t, "u1", "Etude.pdf")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mux.ServeHTTP(w, httputil.WithUser(r, "u1", "u1@example.com"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("first event carries the snapshot", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/library/tree/stream", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		var event, data string
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Text()
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				event = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				data = v
				break
			}
		}
		require.Equal(t, "tree", event)

		var snap models.TreeSnapshot
		require.NoError(t, json.Unmarshal([]byte(data), &snap))
		require.Len(t, snap.Files, 1)
		assert.Equal(t, "Etude.pdf", snap.Files[0].FileName)
	})

	t.Run("unknown folder fails before streaming", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/library/tree/stream?folder_id=missing", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
