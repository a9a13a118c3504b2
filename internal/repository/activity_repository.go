package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// ActivityRepository persists and reads the append-only activity trail.
type ActivityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// insertActivity writes one activity row using the given executor, which may
// be the pool or an open transaction. Mutating repository methods call it
// inside the same transaction as the change they describe.
func insertActivity(ctx context.Context, ext sqlx.ExtContext, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO activity_logs (id, user_id, sample_id, activity_type, description, created_at)
		VALUES (:id, :user_id, :sample_id, :activity_type, :description, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// Create appends a single entry outside any sample transaction. Used for
// events that do not mutate sample rows, such as logins.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return insertActivity(ctx, r.db, entry)
}

const activityEntryColumns = `
	al.id,
	al.activity_type,
	al.description,
	u.first_name || ' ' || u.last_name AS user_name,
	u.role AS user_role,
	rs.rock_id,
	al.created_at`

// Recent returns the newest entries joined with actor and sample context.
// Entries survive deletion of their actor or sample, so the joined fields
// may be null.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM activity_logs al
		LEFT JOIN users u ON u.id = al.user_id
		LEFT JOIN rock_samples rs ON rs.id = al.sample_id
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $1`, activityEntryColumns)

	entries := []models.ActivityEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return entries, nil
}

// List returns a filtered, paginated page of the trail plus the total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityEntry, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.ActivityType != "" {
		args = append(args, filter.ActivityType)
		conditions = append(conditions, fmt.Sprintf("al.activity_type = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("al.user_id = $%d", len(args)))
	}
	if filter.SampleID != "" {
		args = append(args, filter.SampleID)
		conditions = append(conditions, fmt.Sprintf("al.sample_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM activity_logs al %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
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

	query := fmt.Sprintf(`
		SELECT %s
		FROM activity_logs al
		LEFT JOIN users u ON u.id = al.user_id
		LEFT JOIN rock_samples rs ON rs.id = al.sample_id
		%s
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $%d OFFSET $%d`, activityEntryColumns, where, len(args)-1, len(args))

	entries := []models.ActivityEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	return entries, total, nil
}
