package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/repository/docstore"
	"scorelib/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeContent keeps blobs in memory.
type fakeContent struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	failDelete map[string]error
}

func newFakeContent() *fakeContent {
	return &fakeContent{blobs: map[string][]byte{}, failDelete: map[string]error{}}
}

func (c *fakeContent) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs[path] = data
	return "mem://" + path, nil
}

func (c *fakeContent) Open(_ context.Context, path string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.blobs[path]
	if !ok {
		return nil, &domain.NotFoundError{Message: path}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *fakeContent) Delete(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failDelete[path]; err != nil {
		return err
	}
	delete(c.blobs, path)
	return nil
}

func (c *fakeContent) Type() string { return "fake" }

func (c *fakeContent) has(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.blobs[path]
	return ok
}

// countingStore counts write calls.
type countingStore struct {
	repositories.DocumentStore
	writes atomic.Int64
}

func (s *countingStore) Set(ctx context.Context, path string, data map[string]any) error {
	s.writes.Add(1)
	return s.DocumentStore.Set(ctx, path, data)
}

func (s *countingStore) Add(ctx context.Context, collection string, data map[string]any) (*repositories.Document, error) {
	s.writes.Add(1)
	return s.DocumentStore.Add(ctx, collection, data)
}

func (s *countingStore) Update(ctx context.Context, path string, data map[string]any) error {
	s.writes.Add(1)
	return s.DocumentStore.Update(ctx, path, data)
}

func (s *countingStore) Delete(ctx context.Context, path string) error {
	s.writes.Add(1)
	return s.DocumentStore.Delete(ctx, path)
}

var errInjected = errors.New("injected failure")

// failingStore fails deletes of chosen paths and queries of chosen collections.
type failingStore struct {
	repositories.DocumentStore
	failDelete map[string]bool
	failQuery  map[string]bool
	failUpdate map[string]bool
}

func newFailingStore(inner repositories.DocumentStore) *failingStore {
	return &failingStore{
		DocumentStore: inner,
		failDelete:    map[string]bool{},
		failQuery:     map[string]bool{},
		failUpdate:    map[string]bool{},
	}
}

func (s *failingStore) Delete(ctx context.Context, path string) error {
	if s.failDelete[path] {
		return fmt.Errorf("delete %s: %w", path, errInjected)
	}
	return s.DocumentStore.Delete(ctx, path)
}

func (s *failingStore) Update(ctx context.Context, path string, data map[string]any) error {
	if s.failUpdate[path] {
		return fmt.Errorf("update %s: %w", path, errInjected)
	}
	return s.DocumentStore.Update(ctx, path, data)
}

func (s *failingStore) Query(ctx context.Context, collection string, filters ...repositories.Filter) ([]repositories.Document, error) {
	if s.failQuery[collection] {
		return nil, fmt.Errorf("query %s: %w", collection, errInjected)
	}
	return s.DocumentStore.Query(ctx, collection, filters...)
}

type testEnv struct {
	mem     *memory.Store
	store   repositories.DocumentStore
	content *fakeContent
	dir     libsvc.UserDirectory
	overlay libsvc.OverlayService
	loader  libsvc.TreeLoader
	engine  libsvc.DeletionEngine
	folders libsvc.FolderService
	files   libsvc.FileService
	clock   *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(s repositories.DocumentStore) repositories.DocumentStore { return s })
}

// newTestEnvWith builds services over a memory store passed through wrap.
func newTestEnvWith(t *testing.T, wrap func(repositories.DocumentStore) repositories.DocumentStore) *testEnv {
	t.Helper()
	logger := testLogger()
	registry, err := filetypes.NewRegistry()
	require.NoError(t, err)

	mem := memory.NewStore(logger)
	store := wrap(mem)
	content := newFakeContent()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	dir := NewUserDirectory(store, nil, logger)
	overlay := NewOverlayService(store, logger)
	engine := NewDeletionEngine(store, content, logger)

	folders := NewFolderService(store, dir, engine, logger)
	folders.(*folderService).now = clock.Now
	files := NewFileService(store, content, overlay, registry, logger)
	files.(*fileService).now = clock.Now

	return &testEnv{
		mem:     mem,
		store:   store,
		content: content,
		dir:     dir,
		overlay: overlay,
		loader:  NewTreeLoader(store, overlay, logger),
		engine:  engine,
		folders: folders,
		files:   files,
		clock:   clock,
	}
}

func (e *testEnv) addUser(t *testing.T, id, email string) {
	t.Helper()
	require.NoError(t, e.dir.SaveProfile(context.Background(), &models.UserProfile{ID: id, Email: email}))
}

func (e *testEnv) mkdir(t *testing.T, userID, name string, parent *string) *models.Folder {
	t.Helper()
	f, err := e.folders.CreateFolder(context.Background(), &libsvc.CreateFolderRequest{
		UserID:         userID,
		Name:           name,
		ParentFolderID: parent,
	})
	require.NoError(t, err)
	return f
}

// share creates a top-level share owned by owner with the given roles.
func (e *testEnv) share(t *testing.T, owner, name string, roles map[string]models.Role) *models.Folder {
	t.Helper()
	var invites []libsvc.Invite
	for uid, role := range roles {
		invites = append(invites, libsvc.Invite{Email: uid + "@example.com", Role: role})
	}
	res, err := e.folders.CreateSharedFolder(context.Background(), &libsvc.CreateSharedFolderRequest{
		UserID:  owner,
		Name:    name,
		Invites: invites,
	})
	require.NoError(t, err)
	require.Empty(t, res.Unresolved)
	return res.Folder
}

func (e *testEnv) upload(t *testing.T, userID, name string, folder *string) *models.FileRecord {
	t.Helper()
	rec, err := e.files.UploadFile(context.Background(), &libsvc.UploadFileRequest{
		UserID:      userID,
		FolderID:    folder,
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(len(name)),
		Content:     strings.NewReader(name),
	})
	require.NoError(t, err)
	return rec
}

func (e *testEnv) exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := e.mem.Get(context.Background(), path)
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func ptr(s string) *string { return &s }

func folderPath(f *models.Folder) string {
	return docstore.Join(folderCollection(f.OwnerUserID, f.IsShared), f.ID)
}
