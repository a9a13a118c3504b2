package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

// Actor identifies the authenticated caller inside service methods.
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) isStaff() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RolePersonnel
}

type sampleRepository interface {
	Create(ctx context.Context, sample *models.RockSample) error
	FindByID(ctx context.Context, id string) (*models.RockSample, error)
	FindByRockID(ctx context.Context, rockID string) (*models.RockSample, error)
	List(ctx context.Context, filter models.SampleFilter) ([]models.RockSample, int, error)
	Update(ctx context.Context, sample *models.RockSample, prevStatus models.SampleStatus) error
	Delete(ctx context.Context, id, rockID, actorID string) error
	VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error)
}

type sampleImageStore interface {
	Create(ctx context.Context, image *models.Image) error
	MetaBySample(ctx context.Context, sampleID string) ([]models.ImageMeta, error)
}

type sampleApprovalReader interface {
	ListBySample(ctx context.Context, sampleID string) ([]models.ApprovalLog, error)
}

type sampleArchiveReader interface {
	FindBySample(ctx context.Context, sampleID string) (*models.Archive, error)
}

type submissionCounter interface {
	SampleSubmitted()
}

// UploadPolicy bounds incoming sample images.
type UploadPolicy struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

func (p UploadPolicy) allows(mime string) bool {
	if len(p.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range p.AllowedMIMEs {
		if allowed == mime {
			return true
		}
	}
	return false
}

// SampleService implements submission, retrieval, editing, and deletion of
// rock samples. Students operate only on their own records; personnel and
// admins see everything.
type SampleService struct {
	repo      sampleRepository
	images    sampleImageStore
	approvals sampleApprovalReader
	archives  sampleArchiveReader
	metrics   submissionCounter
	validator *validator.Validate
	logger    *zap.Logger
	uploads   UploadPolicy
}

func NewSampleService(
	repo sampleRepository,
	images sampleImageStore,
	approvals sampleApprovalReader,
	archives sampleArchiveReader,
	metrics submissionCounter,
	validate *validator.Validate,
	logger *zap.Logger,
	uploads UploadPolicy,
) *SampleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SampleService{
		repo:      repo,
		images:    images,
		approvals: approvals,
		archives:  archives,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		uploads:   uploads,
	}
}

// Submit creates a pending sample owned by the actor, with up to one image
// per slot. The sample row and its trail entry commit together; image rows
// follow and are logged but never roll the submission back.
func (s *SampleService) Submit(ctx context.Context, actor Actor, req models.SampleCreateRequest, uploads []models.ImageUpload) (*models.RockSample, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sample payload")
	}

	if _, err := s.repo.FindByRockID(ctx, req.RockID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("rock id %s is already in use", req.RockID))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rock id")
	}

	validated, err := validateUploads(s.uploads, uploads)
	if err != nil {
		return nil, err
	}

	sample := &models.RockSample{
		UserID:       actor.ID,
		RockIndex:    req.RockIndex,
		RockID:       req.RockID,
		RockType:     req.RockType,
		Formation:    req.Formation,
		Description:  req.Description,
		OutcropID:    req.OutcropID,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Status:       models.StatusPending,
	}

	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sample")
	}

	for _, img := range validated {
		img.SampleID = sample.ID
		if err := s.images.Create(ctx, img); err != nil {
			s.logger.Warn("failed to store sample image",
				zap.String("sample_id", sample.ID),
				zap.String("image_type", string(img.ImageType)),
				zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.SampleSubmitted()
	}

	return sample, nil
}

// Get returns the full detail of one sample. Students can only read their
// own submissions.
func (s *SampleService) Get(ctx context.Context, actor Actor, id string) (*models.SampleDetail, error) {
	sample, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if !actor.isStaff() && sample.UserID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "sample belongs to another user")
	}

	detail := &models.SampleDetail{Sample: *sample}

	if metas, err := s.images.MetaBySample(ctx, id); err == nil {
		detail.Images = metas
	} else {
		s.logger.Warn("failed to load sample images", zap.String("sample_id", id), zap.Error(err))
	}

	if logs, err := s.approvals.ListBySample(ctx, id); err == nil {
		detail.Approvals = logs
	} else {
		s.logger.Warn("failed to load approval history", zap.String("sample_id", id), zap.Error(err))
	}

	if _, err := s.archives.FindBySample(ctx, id); err == nil {
		detail.Archived = true
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to check archive state", zap.String("sample_id", id), zap.Error(err))
	}

	return detail, nil
}

// List returns a filtered page of samples. Student listings are pinned to
// their own submissions; only staff may include archived records.
func (s *SampleService) List(ctx context.Context, actor Actor, filter models.SampleFilter) ([]models.RockSample, int, error) {
	if !actor.isStaff() {
		filter.OwnerID = actor.ID
		filter.IncludeArchived = false
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}

	samples, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list samples")
	}
	return samples, total, nil
}

// Update edits a sample guarded by its version counter. Students may edit
// only their own pending submissions; staff may edit anything, including
// the status, which lands in the trail as an edit.
func (s *SampleService) Update(ctx context.Context, actor Actor, id string, req models.SampleUpdateRequest) (*models.RockSample, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	sample, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if !actor.isStaff() {
		if sample.UserID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "sample belongs to another user")
		}
		if sample.Status != models.StatusPending {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending samples can be edited")
		}
		if req.Status != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "status can only be changed by staff")
		}
	}

	prevStatus := sample.Status
	prevRockID := sample.RockID
	applyUpdate(sample, req)

	if sample.RockID != prevRockID {
		if existing, err := s.repo.FindByRockID(ctx, sample.RockID); err == nil && existing.ID != sample.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("rock id %s is already in use", sample.RockID))
		}
	}

	if req.Status != nil {
		status := models.SampleStatus(*req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *req.Status))
		}
		sample.Status = status
		// verified_by is non-null exactly while the sample sits in a
		// decided state
		if status == models.StatusPending {
			sample.VerifiedBy = nil
		} else if sample.VerifiedBy == nil {
			verifier := actor.ID
			sample.VerifiedBy = &verifier
		}
	}

	sample.Version = req.Version
	if err := s.repo.Update(ctx, sample, prevStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "sample was modified by someone else, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sample")
	}

	return sample, nil
}

// Delete removes a sample permanently. Cascades drop its images while log
// history keeps the rock id in descriptions.
func (s *SampleService) Delete(ctx context.Context, actor Actor, id string) error {
	sample, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	if actor.Role != models.RoleAdmin {
		if sample.UserID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "sample belongs to another user")
		}
		if sample.Status != models.StatusPending {
			return appErrors.Clone(appErrors.ErrForbidden, "only pending samples can be deleted by their owner")
		}
	}

	if err := s.repo.Delete(ctx, sample.ID, sample.RockID, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sample")
	}
	return nil
}

// Verified returns the public verified listing with display names.
func (s *SampleService) Verified(ctx context.Context) ([]models.VerifiedSample, error) {
	samples, err := s.repo.VerifiedWithNames(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list verified samples")
	}
	return samples, nil
}

func validateUploads(policy UploadPolicy, uploads []models.ImageUpload) ([]*models.Image, error) {
	if len(uploads) > 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a sample carries at most one specimen and one outcrop image")
	}

	seen := map[models.ImageType]bool{}
	images := make([]*models.Image, 0, len(uploads))
	for _, up := range uploads {
		if !up.ImageType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown image type %q", up.ImageType))
		}
		if seen[up.ImageType] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate %s image", up.ImageType))
		}
		seen[up.ImageType] = true

		if policy.MaxFileSizeBytes > 0 && int64(len(up.Data)) > policy.MaxFileSizeBytes {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge,
				fmt.Sprintf("%s image exceeds the %d byte limit", up.ImageType, policy.MaxFileSizeBytes))
		}

		// The declared content type is untrusted; sniff the payload.
		detected := mimetype.Detect(up.Data)
		if !policy.allows(detected.String()) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("%s is not an accepted image format", detected.String()))
		}

		images = append(images, &models.Image{
			ImageType: up.ImageType,
			ImageData: up.Data,
			FileName:  up.FileName,
			FileSize:  int64(len(up.Data)),
			MimeType:  detected.String(),
		})
	}
	return images, nil
}

func applyUpdate(sample *models.RockSample, req models.SampleUpdateRequest) {
	if req.RockIndex != nil {
		sample.RockIndex = *req.RockIndex
	}
	if req.RockID != nil && *req.RockID != "" {
		sample.RockID = *req.RockID
	}
	if req.RockType != nil && *req.RockType != "" {
		sample.RockType = *req.RockType
	}
	if req.Formation != nil {
		sample.Formation = *req.Formation
	}
	if req.Description != nil {
		sample.Description = *req.Description
	}
	if req.OutcropID != nil {
		sample.OutcropID = *req.OutcropID
	}
	if req.LocationName != nil && *req.LocationName != "" {
		sample.LocationName = *req.LocationName
	}
	if req.Latitude != nil {
		sample.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		sample.Longitude = req.Longitude
	}
}
