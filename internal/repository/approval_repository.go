package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// ApprovalRepository reads the approval_logs table. Writes happen only
// inside the sample repository's approve/reject transactions.
type ApprovalRepository struct {
	db *sqlx.DB
}

func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// ListBySample returns the decision history of one sample, newest first.
func (r *ApprovalRepository) ListBySample(ctx context.Context, sampleID string) ([]models.ApprovalLog, error) {
	const query = `
		SELECT id, user_id, sample_id, action, remarks, created_at
		FROM approval_logs
		WHERE sample_id = $1
		ORDER BY created_at DESC, id ASC`

	logs := []models.ApprovalLog{}
	if err := r.db.SelectContext(ctx, &logs, query, sampleID); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return logs, nil
}

// ListByReviewer returns decisions made by one reviewer, newest first.
func (r *ApprovalRepository) ListByReviewer(ctx context.Context, userID string, limit int) ([]models.ApprovalLog, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, user_id, sample_id, action, remarks, created_at
		FROM approval_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2`

	logs := []models.ApprovalLog{}
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list reviewer approvals: %w", err)
	}
	return logs, nil
}
