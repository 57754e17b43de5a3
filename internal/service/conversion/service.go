// Package conversion runs score-to-MusicXML conversions as background jobs
// and files the result next to the source score.
package conversion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scorelib/internal/config"
	conv "scorelib/internal/conversion"
	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/filetypes"
	"scorelib/internal/metrics"
	"scorelib/internal/service/library"
)

const (
	defaultConcurrency = 2
	jobRetention       = time.Hour
)

// Service tracks conversion jobs in memory.
type Service struct {
	loader    libsvc.TreeLoader
	files     libsvc.FileService
	content   repositories.ContentLocator
	converter conv.Converter
	registry  *filetypes.Registry
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time

	mu   sync.Mutex
	jobs map[string]*models.ConversionJob

	sem    chan struct{}
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the conversion job runner. concurrency bounds how many
// conversions run at once; zero selects a default.
func NewService(
	loader libsvc.TreeLoader,
	files libsvc.FileService,
	content repositories.ContentLocator,
	converter conv.Converter,
	registry *filetypes.Registry,
	concurrency int,
	logger *slog.Logger,
) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		loader:    loader,
		files:     files,
		content:   content,
		converter: converter,
		registry:  registry,
		logger:    logger,
		timeout:   conv.DefaultTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		jobs:      make(map[string]*models.ConversionJob),
		sem:       make(chan struct{}, concurrency),
		base:      base,
		cancel:    cancel,
	}
}

// Submit checks the user may write into the file's folder and that the file
// is convertible, then queues the job. It returns without waiting for it.
func (s *Service) Submit(ctx context.Context, userID string, ref libsvc.FileRef) (*models.ConversionJob, error) {
	folder, err := s.loader.ResolveFolder(ctx, userID, ref.FolderID)
	if err != nil {
		return nil, err
	}
	if role := library.ResolveRole(userID, folder); !role.Satisfies(models.RoleEditor) {
		metrics.RecordPermission("convert", false)
		return nil, &domain.PermissionError{Operation: "convert", Held: string(role), Required: string(models.RoleEditor)}
	}
	metrics.RecordPermission("convert", true)

	rec, err := s.files.GetFile(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	ft, ok := s.registry.Lookup(rec.FileType)
	if !ok || !ft.Convertible {
		return nil, fmt.Errorf("%w: %s files cannot be converted", domain.ErrValidation, rec.FileType)
	}

	now := s.now()
	job := &models.ConversionJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileID:    rec.ID,
		FolderID:  ref.FolderID,
		Status:    models.ConversionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.jobs[job.ID] = job
	out := *job
	s.mu.Unlock()

	metrics.RecordConversion(string(models.ConversionPending))
	s.logger.Info("conversion queued", "job_id", job.ID, "file_id", rec.ID, "user_id", userID)

	s.wg.Add(1)
	go s.run(job.ID, userID, ref.FolderID, rec)
	return &out, nil
}

func (s *Service) run(jobID, userID string, folderID *string, rec *models.FileRecord) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.base.Done():
		s.finish(jobID, "", s.base.Err())
		return
	}
	s.update(jobID, func(j *models.ConversionJob) { j.Status = models.ConversionRunning })

	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()

	resultID, err := s.convert(ctx, userID, folderID, rec)
	s.finish(jobID, resultID, err)
}

func (s *Service) convert(ctx context.Context, userID string, folderID *string, rec *models.FileRecord) (string, error) {
	src, err := s.content.Open(ctx, rec.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	name, err := s.converter.Convert(ctx, rec.FileName, src)
	_ = src.Close()
	if err != nil {
		return "", err
	}

	rc, err := s.converter.Download(ctx, name)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, config.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("download result: %w", err)
	}
	if n > config.MaxUploadBytes {
		return "", fmt.Errorf("%w: converted file exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}

	out, err := s.files.UploadFile(ctx, &libsvc.UploadFileRequest{
		UserID:   userID,
		FolderID: folderID,
		FileName: name,
		Size:     n,
		Content:  &buf,
	})
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return out.ID, nil
}

func (s *Service) finish(jobID, resultID string, err error) {
	status := models.ConversionSucceeded
	if err != nil {
		status = models.ConversionFailed
	}
	s.update(jobID, func(j *models.ConversionJob) {
		j.Status = status
		j.ResultFileID = resultID
		if err != nil {
			j.Error = err.Error()
		}
	})
	metrics.RecordConversion(string(status))
	if err != nil {
		s.logger.Warn("conversion failed", "job_id", jobID, "error", err)
		return
	}
	s.logger.Info("conversion finished", "job_id", jobID, "result_file_id", resultID)
}

func (s *Service) update(jobID string, fn func(*models.ConversionJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobID]; ok {
		fn(j)
		j.UpdatedAt = s.now()
	}
}

// pruneLocked drops finished jobs past retention. Caller holds s.mu.
func (s *Service) pruneLocked(now time.Time) {
	for id, j := range s.jobs {
		if j.Status.Done() && now.Sub(j.UpdatedAt) > jobRetention {
			delete(s.jobs, id)
		}
	}
}

// Job returns a snapshot of a job. Other users' jobs are reported missing.
func (s *Service) Job(userID, jobID string) (*models.ConversionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("conversion job %s not found", jobID)}
	}
	out := *j
	return &out, nil
}

// Close cancels queued and running jobs and waits for them to stop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

var _ libsvc.ConversionService = (*Service)(nil)
