package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// SampleRepository owns the rock_samples table and the review transitions on
// it. Every mutation that the activity trail must reflect writes its trail
// entry in the same transaction, so a committed change is never missing its
// log line.
type SampleRepository struct {
	db *sqlx.DB
}

func NewSampleRepository(db *sqlx.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

const sampleColumns = `
	rs.id, rs.user_id, rs.rock_index, rs.rock_id, rs.rock_type, rs.formation,
	rs.description, rs.outcrop_id, rs.location_name, rs.latitude, rs.longitude,
	rs.status, rs.verified_by, rs.version, rs.created_at, rs.updated_at`

// Create inserts a new sample and its "submitted" trail entry atomically.
func (r *SampleRepository) Create(ctx context.Context, sample *models.RockSample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sample.CreatedAt = now
	sample.UpdatedAt = now
	if sample.Status == "" {
		sample.Status = models.StatusPending
	}
	if sample.Version == 0 {
		sample.Version = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create sample: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO rock_samples (
			id, user_id, rock_index, rock_id, rock_type, formation, description,
			outcrop_id, location_name, latitude, longitude, status, verified_by,
			version, created_at, updated_at
		) VALUES (
			:id, :user_id, :rock_index, :rock_id, :rock_type, :formation, :description,
			:outcrop_id, :location_name, :latitude, :longitude, :status, :verified_by,
			:version, :created_at, :updated_at
		)`

	if _, err := tx.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	entry := &models.ActivityLog{
		UserID:       &sample.UserID,
		SampleID:     &sample.ID,
		ActivityType: models.ActivitySubmitted,
		Description:  fmt.Sprintf("Submitted sample %s (%s)", sample.RockID, sample.RockType),
	}
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create sample: %w", err)
	}
	return nil
}

func (r *SampleRepository) FindByID(ctx context.Context, id string) (*models.RockSample, error) {
	query := fmt.Sprintf("SELECT %s FROM rock_samples rs WHERE rs.id = $1", sampleColumns)

	var sample models.RockSample
	if err := r.db.GetContext(ctx, &sample, query, id); err != nil {
		return nil, err
	}
	return &sample, nil
}

func (r *SampleRepository) FindByRockID(ctx context.Context, rockID string) (*models.RockSample, error) {
	query := fmt.Sprintf("SELECT %s FROM rock_samples rs WHERE rs.rock_id = $1", sampleColumns)

	var sample models.RockSample
	if err := r.db.GetContext(ctx, &sample, query, rockID); err != nil {
		return nil, err
	}
	return &sample, nil
}

var sampleSortColumns = map[string]string{
	"created_at":    "rs.created_at",
	"updated_at":    "rs.updated_at",
	"rock_id":       "rs.rock_id",
	"rock_type":     "rs.rock_type",
	"location_name": "rs.location_name",
}

// List returns a filtered page of samples plus the unpaginated total.
// Archived samples are skipped unless the filter opts in.
func (r *SampleRepository) List(ctx context.Context, filter models.SampleFilter) ([]models.RockSample, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if !filter.IncludeArchived {
		conditions = append(conditions, "a.id IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("rs.status = $%d", len(args)))
	}
	if filter.RockType != "" {
		args = append(args, filter.RockType)
		conditions = append(conditions, fmt.Sprintf("rs.rock_type = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("rs.user_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(rs.rock_id) LIKE $%d OR LOWER(rs.location_name) LIKE $%d OR LOWER(rs.formation) LIKE $%d)", n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	base := fmt.Sprintf("FROM rock_samples rs LEFT JOIN archives a ON a.sample_id = rs.id %s", where)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count samples: %w", err)
	}

	sortCol, ok := sampleSortColumns[filter.SortBy]
	if !ok {
		sortCol = "rs.created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, rs.id ASC LIMIT $%d OFFSET $%d",
		sampleColumns, base, sortCol, order, len(args)-1, len(args))

	samples := []models.RockSample{}
	if err := r.db.SelectContext(ctx, &samples, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list samples: %w", err)
	}
	return samples, total, nil
}

// Update rewrites the editable fields of a sample guarded by its version
// counter. sample.Version must carry the version the caller read; a zero
// row count means someone else committed first and surfaces as
// sql.ErrNoRows. When the edit changed the status an "edited" trail entry
// records the old and new values in the same transaction.
func (r *SampleRepository) Update(ctx context.Context, sample *models.RockSample, prevStatus models.SampleStatus) error {
	sample.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update sample: %w", err)
	}
	defer tx.Rollback()

	const query = `
		UPDATE rock_samples SET
			rock_index = :rock_index,
			rock_id = :rock_id,
			rock_type = :rock_type,
			formation = :formation,
			description = :description,
			outcrop_id = :outcrop_id,
			location_name = :location_name,
			latitude = :latitude,
			longitude = :longitude,
			status = :status,
			verified_by = :verified_by,
			version = version + 1,
			updated_at = :updated_at
		WHERE id = :id AND version = :version`

	res, err := tx.NamedExecContext(ctx, query, sample)
	if err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sample rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if sample.Status != prevStatus {
		entry := &models.ActivityLog{
			UserID:       &sample.UserID,
			SampleID:     &sample.ID,
			ActivityType: models.ActivityEdited,
			Description:  fmt.Sprintf("Status of sample %s changed from %s to %s", sample.RockID, prevStatus, sample.Status),
		}
		if err := insertActivity(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update sample: %w", err)
	}
	sample.Version++
	return nil
}

// DecisionParams carries one approve or reject transition. Version is the
// counter value the reviewer last read.
type DecisionParams struct {
	SampleID   string
	RockID     string
	VerifierID string
	Remarks    string
	Version    int
}

// Approve moves a sample to verified and records the approval and trail
// rows atomically.
func (r *SampleRepository) Approve(ctx context.Context, p DecisionParams) error {
	if err := r.applyDecision(ctx, models.StatusVerified, models.ActionApproved, models.ActivityApproved, p); err != nil {
		return fmt.Errorf("approve sample: %w", err)
	}
	return nil
}

// Reject moves a sample to rejected and records the approval and trail
// rows atomically.
func (r *SampleRepository) Reject(ctx context.Context, p DecisionParams) error {
	if err := r.applyDecision(ctx, models.StatusRejected, models.ActionRejected, models.ActivityRejected, p); err != nil {
		return fmt.Errorf("reject sample: %w", err)
	}
	return nil
}

func (r *SampleRepository) applyDecision(ctx context.Context, status models.SampleStatus, action models.ApprovalAction, activityType string, p DecisionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	const updateQuery = `
		UPDATE rock_samples
		SET status = $2, verified_by = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $5`

	res, err := tx.ExecContext(ctx, updateQuery, p.SampleID, status, p.VerifierID, now, p.Version)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	approval := &models.ApprovalLog{
		ID:        uuid.NewString(),
		UserID:    &p.VerifierID,
		SampleID:  &p.SampleID,
		Action:    action,
		Remarks:   p.Remarks,
		CreatedAt: now,
	}

	const approvalQuery = `
		INSERT INTO approval_logs (id, user_id, sample_id, action, remarks, created_at)
		VALUES (:id, :user_id, :sample_id, :action, :remarks, :created_at)`

	if _, err := tx.NamedExecContext(ctx, approvalQuery, approval); err != nil {
		return err
	}

	entry := &models.ActivityLog{
		UserID:       &p.VerifierID,
		SampleID:     &p.SampleID,
		ActivityType: activityType,
		Description:  fmt.Sprintf("Sample %s %s", p.RockID, activityType),
	}
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a sample and records the deletion in the trail within one
// transaction. The trail entry carries no sample reference since the row is
// gone; the rock id lives on in the description.
func (r *SampleRepository) Delete(ctx context.Context, id, rockID, actorID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete sample: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM rock_samples WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sample rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	entry := &models.ActivityLog{
		UserID:       &actorID,
		ActivityType: models.ActivityDeleted,
		Description:  fmt.Sprintf("Deleted sample %s", rockID),
	}
	if err := insertActivity(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete sample: %w", err)
	}
	return nil
}

// VerifiedWithNames returns all verified, non-archived samples joined with
// the submitter and verifier display names, newest first.
func (r *SampleRepository) VerifiedWithNames(ctx context.Context) ([]models.VerifiedSample, error) {
	const query = `
		SELECT
			rs.id, rs.rock_id, rs.rock_type, rs.formation, rs.location_name,
			rs.latitude, rs.longitude,
			su.first_name || ' ' || su.last_name AS submitted_by,
			COALESCE(vu.first_name || ' ' || vu.last_name, '') AS verified_by,
			rs.created_at AS submitted_at,
			rs.updated_at AS last_updated_at
		FROM rock_samples rs
		JOIN users su ON su.id = rs.user_id
		LEFT JOIN users vu ON vu.id = rs.verified_by
		LEFT JOIN archives a ON a.sample_id = rs.id
		WHERE rs.status = 'verified' AND a.id IS NULL
		ORDER BY rs.created_at DESC, rs.id ASC`

	samples := []models.VerifiedSample{}
	if err := r.db.SelectContext(ctx, &samples, query); err != nil {
		return nil, fmt.Errorf("list verified samples: %w", err)
	}
	return samples, nil
}

// PendingQueue returns the pending samples oldest first, id as tiebreak, so
// reviewers always see the same stable FIFO order.
func (r *SampleRepository) PendingQueue(ctx context.Context) ([]models.PendingSample, error) {
	const query = `
		SELECT
			rs.id, rs.rock_id, rs.rock_type, rs.location_name,
			su.first_name || ' ' || su.last_name AS submitted_by,
			su.school_id,
			rs.created_at AS submitted_at
		FROM rock_samples rs
		JOIN users su ON su.id = rs.user_id
		WHERE rs.status = 'pending'
		ORDER BY rs.created_at ASC, rs.id ASC`

	samples := []models.PendingSample{}
	if err := r.db.SelectContext(ctx, &samples, query); err != nil {
		return nil, fmt.Errorf("list pending samples: %w", err)
	}
	return samples, nil
}
