package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
	"github.com/webgis-caps/rocksample-api/pkg/export"
	"github.com/webgis-caps/rocksample-api/pkg/jobs"
	"github.com/webgis-caps/rocksample-api/pkg/storage"
)

type exportSampleReader interface {
	VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error)
}

type exportCounter interface {
	ExportGenerated(format string)
}

// ExportService renders the verified-samples dataset into downloadable
// CSV or PDF files. Jobs run on a background queue and are tracked in
// memory for the lifetime of the process; files land on disk behind
// signed download tokens.
type ExportService struct {
	samples exportSampleReader
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	metrics exportCounter
	logger  *zap.Logger

	csv *export.CSVExporter
	pdf *export.PDFExporter

	mu       sync.RWMutex
	jobsByID map[string]*models.ExportJob
}

func NewExportService(
	samples exportSampleReader,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	metrics exportCounter,
	logger *zap.Logger,
	workers, retries int,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		samples:  samples,
		store:    store,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		jobsByID: map[string]*models.ExportJob{},
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers a new export job and schedules it.
func (s *ExportService) Enqueue(ctx context.Context, actor Actor, format models.ExportFormat) (*models.ExportJob, error) {
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Format:      format,
		Status:      models.ExportStatusQueued,
		RequestedBy: actor.ID,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobsByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(format)}); err != nil {
		s.mu.Lock()
		delete(s.jobsByID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export")
	}

	return s.snapshot(job.ID), nil
}

// Status returns the current state of a job. Requesters only see their
// own jobs unless they are staff.
func (s *ExportService) Status(ctx context.Context, actor Actor, jobID string) (*models.ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if !actor.isStaff() && job.RequestedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export job belongs to another user")
	}
	return job, nil
}

// OpenDownload validates a signed token and opens the referenced file.
func (s *ExportService) OpenDownload(token string) (*models.ExportJob, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	job := s.snapshot(jobID)
	if job == nil || job.Status != models.ExportStatusFinished {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export is not available")
	}
	return job, relPath, nil
}

// File returns a read handle for a stored export file.
func (s *ExportService) File(relPath string) (io.ReadCloser, error) {
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file missing")
	}
	return file, nil
}

// CleanupLoop periodically removes export files past the signed URL TTL.
func (s *ExportService) CleanupLoop(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(ttl)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("export files cleaned up", zap.Int("count", len(deleted)))
			}
		}
	}
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	s.setStatus(job.ID, models.ExportStatusProcessing, nil)

	samples, err := s.samples.VerifiedWithNames(ctx)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	dataset := buildVerifiedDataset(samples)
	format := models.ExportFormat(job.Type)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Verified Rock Samples")
	default:
		err = fmt.Errorf("unsupported format %q", job.Type)
	}
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	filename := fmt.Sprintf("verified-samples-%s.%s", job.ID, format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	downloadURL := fmt.Sprintf("/api/v1/exports/download/%s", token)
	now := time.Now().UTC()

	s.mu.Lock()
	if rec, ok := s.jobsByID[job.ID]; ok {
		rec.Status = models.ExportStatusFinished
		rec.DownloadURL = &downloadURL
		rec.ExpiresAt = &expiresAt
		rec.FinishedAt = &now
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ExportGenerated(string(format))
	}
	s.logger.Info("export finished",
		zap.String("job_id", job.ID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)))

	return nil
}

func (s *ExportService) setStatus(jobID string, status models.ExportStatus, errMsg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.jobsByID[jobID]; ok {
		rec.Status = status
		rec.ErrorMessage = errMsg
	}
}

func (s *ExportService) fail(jobID string, err error) {
	msg := err.Error()
	now := time.Now().UTC()
	s.mu.Lock()
	if rec, ok := s.jobsByID[jobID]; ok {
		rec.Status = models.ExportStatusFailed
		rec.ErrorMessage = &msg
		rec.FinishedAt = &now
	}
	s.mu.Unlock()
	s.logger.Error("export failed", zap.String("job_id", jobID), zap.Error(err))
}

func (s *ExportService) snapshot(jobID string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobsByID[jobID]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}

func buildVerifiedDataset(samples []models.VerifiedSample) export.Dataset {
	dataset := export.Dataset{
		Columns: []string{"Rock ID", "Rock Type", "Formation", "Location", "Latitude", "Longitude", "Submitted By", "Verified By", "Submitted At"},
	}
	for _, sample := range samples {
		lat, lon := "", ""
		if sample.Latitude != nil {
			lat = fmt.Sprintf("%.6f", *sample.Latitude)
		}
		if sample.Longitude != nil {
			lon = fmt.Sprintf("%.6f", *sample.Longitude)
		}
		dataset.Rows = append(dataset.Rows, []string{
			sample.RockID,
			sample.RockType,
			sample.Formation,
			sample.LocationName,
			lat,
			lon,
			sample.SubmittedBy,
			sample.VerifiedBy,
			sample.SubmittedAt.Format(time.RFC3339),
		})
	}
	return dataset
}
