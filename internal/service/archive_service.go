package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type archiveRepository interface {
	Create(ctx context.Context, rec *models.Archive, rockID string) error
	Remove(ctx context.Context, sampleID, rockID, actorID string) error
	FindBySample(ctx context.Context, sampleID string) (*models.Archive, error)
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, error)
}

type archiveSampleReader interface {
	FindByID(ctx context.Context, id string) (*models.RockSample, error)
}

type archiveCounter interface {
	SampleArchived()
}

// ArchiveService manages the archive overlay. Only verified samples can be
// archived, the sample row stays untouched, and restoring is admin only.
type ArchiveService struct {
	repo      archiveRepository
	samples   archiveSampleReader
	metrics   archiveCounter
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewArchiveService(repo archiveRepository, samples archiveSampleReader, metrics archiveCounter, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ArchiveService{repo: repo, samples: samples, metrics: metrics, cache: cache, validator: validate, logger: logger}
}

// Archive hides a verified sample from default listings.
func (s *ArchiveService) Archive(ctx context.Context, actor Actor, sampleID string, req models.ArchiveRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload")
	}

	sample, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if sample.Status != models.StatusVerified {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only verified samples can be archived")
	}

	if _, err := s.repo.FindBySample(ctx, sampleID); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "sample is already archived")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check archive state")
	}

	archivedBy := actor.ID
	rec := &models.Archive{
		SampleID:      sampleID,
		ArchivedBy:    &archivedBy,
		ArchiveReason: req.Reason,
	}
	if err := s.repo.Create(ctx, rec, sample.RockID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive sample")
	}

	if s.metrics != nil {
		s.metrics.SampleArchived()
	}
	s.invalidate(ctx)

	return nil
}

// Unarchive restores a sample to default visibility. Admin only, enforced
// at the route level and re-checked here.
func (s *ArchiveService) Unarchive(ctx context.Context, actor Actor, sampleID string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can restore archived samples")
	}

	sample, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if err := s.repo.Remove(ctx, sampleID, sample.RockID, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample is not archived")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore sample")
	}

	s.invalidate(ctx)
	return nil
}

// List returns archive entries. Students only see archives of their own
// samples.
func (s *ArchiveService) List(ctx context.Context, actor Actor, filter models.ArchiveFilter) ([]models.ArchiveEntry, error) {
	if !actor.isStaff() {
		filter.OwnerID = actor.ID
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archives")
	}
	return entries, nil
}

func (s *ArchiveService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"dashboard:*", "map:*"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
