package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type statsReader interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type activityReader interface {
	Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityEntry, int, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const dashboardStatsKey = "dashboard:stats"

// DashboardService serves the admin dashboard counters and the recent
// activity feed. Counters are cached briefly; the feed is always live.
type DashboardService struct {
	stats    statsReader
	activity activityReader
	cache    dashboardCache
	ttl      time.Duration
	logger   *zap.Logger
}

func NewDashboardService(stats statsReader, activity activityReader, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{stats: stats, activity: activity, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns the dashboard counters, served from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if s.cache != nil {
		var cached models.DashboardStats
		err := s.cache.Get(ctx, dashboardStatsKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	stats, err := s.stats.Dashboard(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// RecentActivity returns the newest trail entries with actor and sample
// context resolved where the references survive.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	entries, err := s.activity.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}
	return entries, nil
}

// ActivityLog returns the filtered, paginated admin view of the trail.
func (s *DashboardService) ActivityLog(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityEntry, int, error) {
	entries, total, err := s.activity.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity log")
	}
	return entries, total, nil
}
