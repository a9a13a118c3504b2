package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/models"
	appErrors "github.com/webgis-caps/rocksample-api/pkg/errors"
)

type mapStatsReader interface {
	MapMarkers(ctx context.Context) ([]models.MapMarker, error)
	LocationAggregates(ctx context.Context) ([]models.LocationAggregate, error)
}

const (
	mapMarkersKey   = "map:markers"
	mapLocationsKey = "map:locations"
)

// MapService serves the interactive map: verified specimens as markers and
// per-location clusters. Both payloads are cached since the map is the
// most visited public screen.
type MapService struct {
	stats  mapStatsReader
	cache  dashboardCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewMapService(stats mapStatsReader, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *MapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MapService{stats: stats, cache: cache, ttl: ttl, logger: logger}
}

// Markers returns every verified, non-archived specimen with coordinates.
func (s *MapService) Markers(ctx context.Context) ([]models.MapMarker, error) {
	if s.cache != nil {
		var cached []models.MapMarker
		err := s.cache.Get(ctx, mapMarkersKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("map cache read failed", zap.Error(err))
		}
	}

	markers, err := s.stats.MapMarkers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load map markers")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, mapMarkersKey, markers, s.ttl); err != nil {
			s.logger.Warn("map cache write failed", zap.Error(err))
		}
	}
	return markers, nil
}

// Locations returns the clustered per-location summary.
func (s *MapService) Locations(ctx context.Context) ([]models.LocationAggregate, error) {
	if s.cache != nil {
		var cached []models.LocationAggregate
		err := s.cache.Get(ctx, mapLocationsKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("map cache read failed", zap.Error(err))
		}
	}

	aggregates, err := s.stats.LocationAggregates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location aggregates")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, mapLocationsKey, aggregates, s.ttl); err != nil {
			s.logger.Warn("map cache write failed", zap.Error(err))
		}
	}
	return aggregates, nil
}
