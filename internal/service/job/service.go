package job

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/model"
	"github.com/pixmill/pixmill/internal/orchestrator"
)

// ErrJobNotFound is returned when the id does not name a live job.
var ErrJobNotFound = orchestrator.ErrJobNotFound

// ErrNoOutput means the job exists but has not produced output yet.
var ErrNoOutput = errors.New("job has no output")

// fileStorage defines the interface for the blob backend.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	SaveBytes(ctx context.Context, subdir, filename string, data []byte, contentType string) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// producer defines the interface for publishing ingest events.
type producer interface {
	Enqueue(ctx context.Context, ev model.IngestEvent) error
}

// batch defines the slice of the orchestrator the service consumes.
type batch interface {
	Submit(id uuid.UUID, filename, mimeType string, data []byte, override *model.Settings) error
	Remove(id uuid.UUID) error
	Get(id uuid.UUID) (model.Job, error)
	List() []model.Job
	SetGlobalSettings(s model.Settings)
	GlobalSettings() model.Settings
	SetOverride(id uuid.UUID, s *model.Settings) error
	OnJobUpdated(fn func(model.Job))
}

// Service glues the upload surface, the ingest queue, the orchestrator
// and blob storage together. Uploads are persisted and enqueued; the
// queue consumer submits them to the orchestrator; processed outputs
// are written back to storage.
type Service struct {
	fileStorage fileStorage
	producer    producer
	batch       batch
}

// NewService creates a Service and subscribes it to job updates so
// processed outputs get persisted.
func NewService(fs fileStorage, p producer, b batch) *Service {
	s := &Service{fileStorage: fs, producer: p, batch: b}
	b.OnJobUpdated(s.onJobUpdated)
	return s
}

// SubmitJob saves the uploaded file to storage and enqueues an ingest
// event. The job record itself is created when the queue consumer
// submits the event to the orchestrator.
func (s *Service) SubmitJob(ctx context.Context, filename, mimeType string, file io.Reader, override *model.Settings) (uuid.UUID, error) {
	id := uuid.New()

	// Blobs are named by job id; the user-facing filename travels in
	// the event and on the job record.
	dst, err := s.fileStorage.Save(ctx, "original", id.String(), file)
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to save file: %w", err)
	}

	ev := model.IngestEvent{
		ID:       id,
		Filename: filename,
		MimeType: mimeType,
		Path:     dst,
		Override: override,
	}
	if err := s.producer.Enqueue(ctx, ev); err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to enqueue event: %w", err)
	}

	return id, nil
}

// IngestJob loads the original bytes from storage and submits the job
// to the orchestrator. Called by the queue consumer.
func (s *Service) IngestJob(ctx context.Context, ev model.IngestEvent) error {
	reader, err := s.fileStorage.Load(ctx, ev.Path)
	if err != nil {
		return fmt.Errorf("ingest: failed to load original: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("ingest: failed to read original: %w", err)
	}

	if err := s.batch.Submit(ev.ID, ev.Filename, ev.MimeType, data, ev.Override); err != nil {
		// A redelivered message is not an error worth retrying.
		if errors.Is(err, orchestrator.ErrDuplicateJob) {
			zlog.Logger.Warn().Str("job", ev.ID.String()).Msg("duplicate ingest event ignored")
			return nil
		}
		return fmt.Errorf("ingest: failed to submit job: %w", err)
	}

	return nil
}

// GetJob returns a copy of the job record.
func (s *Service) GetJob(id uuid.UUID) (model.Job, error) {
	return s.batch.Get(id)
}

// ListJobs returns copies of all job records.
func (s *Service) ListJobs() []model.Job {
	return s.batch.List()
}

// GetOutput returns the job record together with its output bytes.
func (s *Service) GetOutput(id uuid.UUID) (model.Job, []byte, error) {
	job, err := s.batch.Get(id)
	if err != nil {
		return model.Job{}, nil, err
	}
	if job.State != model.JobProcessed || job.OutputBytes == nil {
		return model.Job{}, nil, ErrNoOutput
	}
	return job, job.OutputBytes, nil
}

// DeleteJob removes the job and its stored blobs.
func (s *Service) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if err := s.batch.Remove(id); err != nil {
		return err
	}

	// Blob cleanup is best effort; the job record is already gone.
	for _, path := range []string{"original/" + id.String(), "output/" + id.String()} {
		if err := s.fileStorage.Delete(ctx, path); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to delete blob")
		}
	}

	return nil
}

// SetGlobalSettings replaces the global settings, invalidating affected
// jobs.
func (s *Service) SetGlobalSettings(settings model.Settings) {
	s.batch.SetGlobalSettings(settings)
}

// GlobalSettings returns the current global settings.
func (s *Service) GlobalSettings() model.Settings {
	return s.batch.GlobalSettings()
}

// ApplyPreset merges the named preset onto the global settings and
// applies the result.
func (s *Service) ApplyPreset(presetID string) model.Settings {
	merged := model.ApplyPreset(presetID, s.batch.GlobalSettings())
	s.batch.SetGlobalSettings(merged)
	return merged
}

// SetOverride replaces one job's settings override.
func (s *Service) SetOverride(id uuid.UUID, settings *model.Settings) error {
	return s.batch.SetOverride(id, settings)
}

// onJobUpdated persists processed outputs to storage.
func (s *Service) onJobUpdated(job model.Job) {
	if job.State != model.JobProcessed || job.OutputBytes == nil {
		return
	}

	_, err := s.fileStorage.SaveBytes(context.Background(), "output", job.ID.String(), job.OutputBytes, job.OutputFormat.ContentType())
	if err != nil {
		zlog.Logger.Err(err).Str("job", job.ID.String()).Msg("failed to persist output")
		return
	}

	zlog.Logger.Info().
		Str("job", job.ID.String()).
		Str("format", string(job.OutputFormat)).
		Int64("original_size", job.OriginalSize).
		Int64("output_size", job.OutputSize).
		Msg("output persisted")
}
