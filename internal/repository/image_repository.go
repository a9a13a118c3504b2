package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// ImageRepository owns the images table. Rows carry the binary payload and
// disappear only through the owning sample's cascade.
type ImageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *models.Image) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO images (id, sample_id, image_type, image_data, file_name, file_size, mime_type, created_at)
		VALUES (:id, :sample_id, :image_type, :image_data, :file_name, :file_size, :mime_type, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// Replace swaps the payload for one (sample, type) slot, inserting when the
// slot is empty. The per-sample uniqueness of each slot lives in the schema.
func (r *ImageRepository) Replace(ctx context.Context, image *models.Image) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	image.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO images (id, sample_id, image_type, image_data, file_name, file_size, mime_type, created_at)
		VALUES (:id, :sample_id, :image_type, :image_data, :file_name, :file_size, :mime_type, :created_at)
		ON CONFLICT (sample_id, image_type) DO UPDATE SET
			image_data = EXCLUDED.image_data,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			mime_type = EXCLUDED.mime_type,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("replace image: %w", err)
	}
	return nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*models.Image, error) {
	const query = `
		SELECT id, sample_id, image_type, image_data, file_name, file_size, mime_type, created_at
		FROM images WHERE id = $1`

	var image models.Image
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *ImageRepository) FindBySampleAndType(ctx context.Context, sampleID string, imageType models.ImageType) (*models.Image, error) {
	const query = `
		SELECT id, sample_id, image_type, image_data, file_name, file_size, mime_type, created_at
		FROM images WHERE sample_id = $1 AND image_type = $2`

	var image models.Image
	if err := r.db.GetContext(ctx, &image, query, sampleID, imageType); err != nil {
		return nil, err
	}
	return &image, nil
}

// MetaBySample lists the payload-free metadata of a sample's images.
func (r *ImageRepository) MetaBySample(ctx context.Context, sampleID string) ([]models.ImageMeta, error) {
	const query = `
		SELECT id, sample_id, image_type, file_name, file_size, mime_type, created_at
		FROM images WHERE sample_id = $1
		ORDER BY image_type ASC`

	metas := []models.ImageMeta{}
	if err := r.db.SelectContext(ctx, &metas, query, sampleID); err != nil {
		return nil, fmt.Errorf("list sample images: %w", err)
	}
	return metas, nil
}
