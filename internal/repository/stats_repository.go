package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/webgis-caps/rocksample-api/internal/models"
)

// StatsRepository computes the read-only aggregates behind the dashboard
// and the map screens.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Dashboard gathers all counters in one round trip.
func (r *StatsRepository) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users WHERE is_active) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_active AND role = 'student') AS total_students,
			(SELECT COUNT(*) FROM users WHERE is_active AND role = 'personnel') AS total_personnel,
			(SELECT COUNT(*) FROM rock_samples) AS total_samples,
			(SELECT COUNT(*) FROM rock_samples WHERE status = 'verified') AS verified_samples,
			(SELECT COUNT(*) FROM rock_samples WHERE status = 'pending') AS pending_samples,
			(SELECT COUNT(*) FROM rock_samples WHERE status = 'rejected') AS rejected_samples,
			(SELECT COUNT(*) FROM archives) AS archived_samples`

	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("load dashboard stats: %w", err)
	}
	return &stats, nil
}

// MapMarkers returns every verified, non-archived sample that carries
// coordinates, ready to plot.
func (r *StatsRepository) MapMarkers(ctx context.Context) ([]models.MapMarker, error) {
	const query = `
		SELECT
			rs.id AS sample_id, rs.rock_id, rs.rock_type, rs.location_name,
			rs.latitude, rs.longitude,
			su.first_name || ' ' || su.last_name AS submitted_by,
			rs.created_at AS submitted_at
		FROM rock_samples rs
		JOIN users su ON su.id = rs.user_id
		LEFT JOIN archives a ON a.sample_id = rs.id
		WHERE rs.status = 'verified'
		  AND a.id IS NULL
		  AND rs.latitude IS NOT NULL
		  AND rs.longitude IS NOT NULL
		ORDER BY rs.created_at DESC, rs.id ASC`

	markers := []models.MapMarker{}
	if err := r.db.SelectContext(ctx, &markers, query); err != nil {
		return nil, fmt.Errorf("list map markers: %w", err)
	}
	return markers, nil
}

// LocationAggregates groups verified specimens per location name with the
// centroid of their coordinates.
func (r *StatsRepository) LocationAggregates(ctx context.Context) ([]models.LocationAggregate, error) {
	const query = `
		SELECT
			rs.location_name,
			COUNT(*) AS specimen_count,
			AVG(rs.latitude) AS avg_latitude,
			AVG(rs.longitude) AS avg_longitude
		FROM rock_samples rs
		LEFT JOIN archives a ON a.sample_id = rs.id
		WHERE rs.status = 'verified'
		  AND a.id IS NULL
		  AND rs.latitude IS NOT NULL
		  AND rs.longitude IS NOT NULL
		GROUP BY rs.location_name
		ORDER BY specimen_count DESC, rs.location_name ASC`

	aggregates := []models.LocationAggregate{}
	if err := r.db.SelectContext(ctx, &aggregates, query); err != nil {
		return nil, fmt.Errorf("aggregate locations: %w", err)
	}
	return aggregates, nil
}
