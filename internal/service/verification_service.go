package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/repository"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type verificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.RockSample, error)
	PendingQueue(ctx context.Context) ([]models.PendingSample, error)
	Approve(ctx context.Context, p repository.DecisionParams) error
	Reject(ctx context.Context, p repository.DecisionParams) error
}

type decisionCounter interface {
	SampleApproved()
	SampleRejected()
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// VerificationService drives the review workflow: the pending queue and
// the approve/reject transitions. Decisions only apply to pending samples
// and race on the version counter the reviewer last read.
type VerificationService struct {
	repo      verificationRepository
	metrics   decisionCounter
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewVerificationService(repo verificationRepository, metrics decisionCounter, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VerificationService{repo: repo, metrics: metrics, cache: cache, validator: validate, logger: logger}
}

// Queue returns the pending samples oldest first.
func (s *VerificationService) Queue(ctx context.Context) ([]models.PendingSample, error) {
	queue, err := s.repo.PendingQueue(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending queue")
	}
	return queue, nil
}

// Approve moves a pending sample to verified.
func (s *VerificationService) Approve(ctx context.Context, actor Actor, sampleID string, req models.DecisionRequest) error {
	return s.decide(ctx, actor, sampleID, req, true)
}

// Reject moves a pending sample to rejected. Remarks are mandatory so the
// submitter learns what to fix.
func (s *VerificationService) Reject(ctx context.Context, actor Actor, sampleID string, req models.DecisionRequest) error {
	if req.Remarks == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rejection requires remarks")
	}
	return s.decide(ctx, actor, sampleID, req, false)
}

func (s *VerificationService) decide(ctx context.Context, actor Actor, sampleID string, req models.DecisionRequest, approve bool) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	sample, err := s.repo.FindByID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if sample.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "sample is not pending review")
	}

	params := repository.DecisionParams{
		SampleID:   sample.ID,
		RockID:     sample.RockID,
		VerifierID: actor.ID,
		Remarks:    req.Remarks,
		Version:    req.Version,
	}

	if approve {
		err = s.repo.Approve(ctx, params)
	} else {
		err = s.repo.Reject(ctx, params)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "sample was modified by someone else, reload and retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	if s.metrics != nil {
		if approve {
			s.metrics.SampleApproved()
		} else {
			s.metrics.SampleRejected()
		}
	}
	s.invalidateDerivedViews(ctx)

	s.logger.Info("sample reviewed",
		zap.String("sample_id", sample.ID),
		zap.String("rock_id", sample.RockID),
		zap.Bool("approved", approve),
		zap.String("reviewer", actor.ID))

	return nil
}

func (s *VerificationService) invalidateDerivedViews(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"dashboard:*", "map:*"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
