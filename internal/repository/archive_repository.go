package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// ArchiveRepository owns the archives overlay table. Archiving never touches
// the sample row; visibility is decided by the presence of an archive row.
type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create inserts the archive row and the "archived" trail entry atomically.
func (r *ArchiveRepository) Create(ctx context.Context, rec *models.Archive, rockID string) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ArchivedAt.IsZero() {
		rec.ArchivedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive sample: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO archives (id, sample_id, archived_by, archive_reason, archived_at)
		VALUES (:id, :sample_id, :archived_by, :archive_reason, :archived_at)`

	if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}

	entry := &models.ActivityLog{
		UserID:       rec.ArchivedBy,
		SampleID:     &rec.SampleID,
		ActivityType: models.ActivityArchived,
		Description:  fmt.Sprintf("Archived sample %s: %s", rockID, rec.ArchiveReason),
	}
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive sample: %w", err)
	}
	return nil
}

// Remove deletes the archive row for a sample and records the restore in
// the trail. A zero row count surfaces as sql.ErrNoRows.
func (r *ArchiveRepository) Remove(ctx context.Context, sampleID, rockID, actorID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unarchive sample: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM archives WHERE sample_id = $1", sampleID)
	if err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete archive rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	entry := &models.ActivityLog{
		UserID:       &actorID,
		SampleID:     &sampleID,
		ActivityType: models.ActivityUnarchived,
		Description:  fmt.Sprintf("Restored sample %s from archive", rockID),
	}
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unarchive sample: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) FindBySample(ctx context.Context, sampleID string) (*models.Archive, error) {
	const query = `
		SELECT id, sample_id, archived_by, archive_reason, archived_at
		FROM archives WHERE sample_id = $1`

	var rec models.Archive
	if err := r.db.GetContext(ctx, &rec, query, sampleID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns archive rows joined with sample and archiver context, newest
// first. OwnerID restricts the listing to samples submitted by that user.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, error) {
	args := []interface{}{}
	where := ""
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = "WHERE rs.user_id = $1"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT
			a.id, a.sample_id, rs.rock_id, rs.rock_type, rs.location_name,
			u.first_name || ' ' || u.last_name AS archived_by_name,
			a.archive_reason, a.archived_at
		FROM archives a
		JOIN rock_samples rs ON rs.id = a.sample_id
		LEFT JOIN users u ON u.id = a.archived_by
		%s
		ORDER BY a.archived_at DESC, a.id ASC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	entries := []models.ArchiveEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return entries, nil
}
