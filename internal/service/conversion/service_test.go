package conversion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/repository/memory"
	"scorelib/internal/service/library"
	"scorelib/internal/storage/local"
)

type fakeConverter struct {
	fail error
}

func (c *fakeConverter) Convert(_ context.Context, fileName string, r io.Reader) (string, error) {
	if c.fail != nil {
		return "", c.fail
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return strings.TrimSuffix(fileName, ".pdf") + ".mxl", nil
}

func (c *fakeConverter) Download(_ context.Context, fileName string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("musicxml:" + fileName)), nil
}

type fixture struct {
	svc   *Service
	files libsvc.FileService
}

func newFixture(t *testing.T, converter *fakeConverter) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	registry, err := filetypes.NewRegistry()
	require.NoError(t, err)
	content, err := local.New(t.TempDir(), "http://localhost/content")
	require.NoError(t, err)

	store := memory.NewStore(logger)
	overlays := library.NewOverlayService(store, logger)
	loader := library.NewTreeLoader(store, overlays, logger)
	files := library.NewFileService(store, content, overlays, registry, logger)

	svc := NewService(loader, files, content, converter, registry, 1, logger)
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, files: files}
}

func (f *fixture) upload(t *testing.T, name string) *models.FileRecord {
	t.Helper()
	rec, err := f.files.UploadFile(context.Background(), &libsvc.UploadFileRequest{
		UserID: "u1", FileName: name, Size: 4, Content: strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	return rec
}

func waitDone(t *testing.T, svc *Service, userID, jobID string) *models.ConversionJob {
	t.Helper()
	var job *models.ConversionJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Job(userID, jobID)
		require.NoError(t, err)
		return job.Status.Done()
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestSubmit_Succeeds(t *testing.T) {
	f := newFixture(t, &fakeConverter{})
	src := f.upload(t, "Prelude.pdf")

	job, err := f.svc.Submit(context.Background(), "u1", libsvc.FileRef{FileID: src.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ConversionPending, job.Status)

	done := waitDone(t, f.svc, "u1", job.ID)
	require.Equal(t, models.ConversionSucceeded, done.Status, done.Error)
	require.NotEmpty(t, done.ResultFileID)

	out, err := f.files.GetFile(context.Background(), "u1", libsvc.FileRef{FileID: done.ResultFileID})
	require.NoError(t, err)
	assert.Equal(t, "Prelude.mxl", out.FileName)
	assert.Equal(t, "application/vnd.recordare.musicxml", out.FileType)
}

func TestSubmit_Failures(t *testing.T) {
	f := newFixture(t, &fakeConverter{fail: errors.New("no staves")})
	ctx := context.Background()
	src := f.upload(t, "Prelude.pdf")

	t.Run("converter error is recorded", func(t *testing.T) {
		job, err := f.svc.Submit(ctx, "u1", libsvc.FileRef{FileID: src.ID})
		require.NoError(t, err)
		done := waitDone(t, f.svc, "u1", job.ID)
		assert.Equal(t, models.ConversionFailed, done.Status)
		assert.Contains(t, done.Error, "no staves")
	})

	t.Run("other users cannot see the job", func(t *testing.T) {
		job, err := f.svc.Submit(ctx, "u1", libsvc.FileRef{FileID: src.ID})
		require.NoError(t, err)
		_, err = f.svc.Job("u2", job.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("not convertible", func(t *testing.T) {
		xml := f.upload(t, "Prelude.musicxml")
		_, err := f.svc.Submit(ctx, "u1", libsvc.FileRef{FileID: xml.ID})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, "u1", libsvc.FileRef{FileID: "nope"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
