package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bp3mi/presensi-api/internal/models"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
)

const (
	cacheKeyDashboardSummary     = "dash:summary"
	cacheKeyDashboardPerformance = "dash:performance"
	cacheKeyDashboardLatest      = "dash:latest"
)

type dashboardStore interface {
	Summary(ctx context.Context) (*models.AttendanceSummary, error)
	Performance(ctx context.Context) ([]models.EmployeePerformance, error)
	Latest(ctx context.Context, limit int) ([]models.AttendanceRecord, error)
}

// DashboardService serves aggregate views over the record store. Reads go
// through the cache; every upload invalidates the dash:* keyspace.
type DashboardService struct {
	repo     dashboardStore
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewDashboardService constructs the service.
func NewDashboardService(repo dashboardStore, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// Summary returns headline counts across all attendance records.
func (s *DashboardService) Summary(ctx context.Context) (*models.AttendanceSummary, error) {
	if s.cache != nil && s.cache.Enabled() {
		var cached models.AttendanceSummary
		if hit, err := s.cache.Get(ctx, cacheKeyDashboardSummary, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard summary")
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKeyDashboardSummary, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}
	return summary, nil
}

// Performance returns per-employee status breakdowns.
func (s *DashboardService) Performance(ctx context.Context) ([]models.EmployeePerformance, error) {
	if s.cache != nil && s.cache.Enabled() {
		var cached []models.EmployeePerformance
		if hit, err := s.cache.Get(ctx, cacheKeyDashboardPerformance, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := s.repo.Performance(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute employee performance")
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKeyDashboardPerformance, rows, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache employee performance", zap.Error(err))
		}
	}
	return rows, nil
}

// Latest returns the most recently updated records.
func (s *DashboardService) Latest(ctx context.Context, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	// Only the default page is worth caching; ad-hoc limits go to the store.
	useCache := s.cache != nil && s.cache.Enabled() && limit == 10
	if useCache {
		var cached []models.AttendanceRecord
		if hit, err := s.cache.Get(ctx, cacheKeyDashboardLatest, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := s.repo.Latest(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest records")
	}

	if useCache {
		if err := s.cache.Set(ctx, cacheKeyDashboardLatest, rows, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache latest records", zap.Error(err))
		}
	}
	return rows, nil
}
