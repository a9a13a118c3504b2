package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type imageRepository interface {
	FindByID(ctx context.Context, id string) (*models.Image, error)
	FindBySampleAndType(ctx context.Context, sampleID string, imageType models.ImageType) (*models.Image, error)
	Replace(ctx context.Context, image *models.Image) error
	MetaBySample(ctx context.Context, sampleID string) ([]models.ImageMeta, error)
}

type imageSampleReader interface {
	FindByID(ctx context.Context, id string) (*models.RockSample, error)
}

// ImageService serves and replaces the photographs attached to samples.
// Access follows the owning sample: students reach only their own.
type ImageService struct {
	repo    imageRepository
	samples imageSampleReader
	logger  *zap.Logger
	uploads UploadPolicy
}

func NewImageService(repo imageRepository, samples imageSampleReader, logger *zap.Logger, uploads UploadPolicy) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{repo: repo, samples: samples, logger: logger, uploads: uploads}
}

// Fetch loads one image with its payload for delivery.
func (s *ImageService) Fetch(ctx context.Context, actor Actor, id string) (*models.Image, error) {
	image, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}

	if err := s.authorize(ctx, actor, image.SampleID); err != nil {
		return nil, err
	}
	return image, nil
}

// FetchBySlot loads the image occupying one (sample, type) slot.
func (s *ImageService) FetchBySlot(ctx context.Context, actor Actor, sampleID string, imageType models.ImageType) (*models.Image, error) {
	if !imageType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown image type")
	}
	if err := s.authorize(ctx, actor, sampleID); err != nil {
		return nil, err
	}

	image, err := s.repo.FindBySampleAndType(ctx, sampleID, imageType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	return image, nil
}

// Replace swaps the image in one slot with a freshly validated upload.
func (s *ImageService) Replace(ctx context.Context, actor Actor, sampleID string, up models.ImageUpload) (*models.ImageMeta, error) {
	if !up.ImageType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown image type")
	}
	if err := s.authorize(ctx, actor, sampleID); err != nil {
		return nil, err
	}

	validated, err := validateUploads(s.uploads, []models.ImageUpload{up})
	if err != nil {
		return nil, err
	}

	image := validated[0]
	image.SampleID = sampleID
	if err := s.repo.Replace(ctx, image); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace image")
	}

	return &models.ImageMeta{
		ID:        image.ID,
		SampleID:  image.SampleID,
		ImageType: image.ImageType,
		FileName:  image.FileName,
		FileSize:  image.FileSize,
		MimeType:  image.MimeType,
		CreatedAt: image.CreatedAt,
	}, nil
}

func (s *ImageService) authorize(ctx context.Context, actor Actor, sampleID string) error {
	sample, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	if !actor.isStaff() && sample.UserID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "sample belongs to another user")
	}
	return nil
}
