package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
)

const (
	cacheKeyStats           = "dashboard:stats"
	cacheKeyAnalyticsFormat = "dashboard:analytics:%d"
	growthDaysDefault       = 30
	growthDaysMax           = 365
)

type dashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	Growth(ctx context.Context, days int) ([]models.GrowthPoint, error)
	AgeGroups(ctx context.Context) ([]models.BucketCount, error)
	ReferralSources(ctx context.Context) ([]models.BucketCount, error)
	MaritalStatuses(ctx context.Context) ([]models.BucketCount, error)
	FamilyStats(ctx context.Context) (*models.FamilyStats, error)
}

// DashboardService assembles the admin landing page and analytics views,
// caching assembled payloads for a short interval.
type DashboardService struct {
	repo     dashboardRepository
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, cacheTTL, timeout time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cacheTTL: cacheTTL, timeout: timeout}
}

// Stats returns directory counts and recent members. The second return
// value reports whether the payload came from cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if hit, _ := s.cache.Get(ctx, cacheKeyStats, &cached); hit {
		return &cached, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load dashboard stats")
	}

	if err := s.cache.Set(ctx, cacheKeyStats, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}
	return stats, false, nil
}

// Analytics returns growth and demographic breakdowns over the given
// window of days.
func (s *DashboardService) Analytics(ctx context.Context, days int) (*models.Analytics, bool, error) {
	if days <= 0 {
		days = growthDaysDefault
	}
	if days > growthDaysMax {
		days = growthDaysMax
	}

	key := fmt.Sprintf(cacheKeyAnalyticsFormat, days)
	var cached models.Analytics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	growth, err := s.repo.Growth(ctx, days)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load growth analytics")
	}
	ageGroups, err := s.repo.AgeGroups(ctx)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load age analytics")
	}
	referrals, err := s.repo.ReferralSources(ctx)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load referral analytics")
	}
	marital, err := s.repo.MaritalStatuses(ctx)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load marital analytics")
	}
	family, err := s.repo.FamilyStats(ctx)
	if err != nil {
		return nil, false, storageFailure(err, "failed to load family analytics")
	}

	analytics := &models.Analytics{
		Growth:         growth,
		AgeGroups:      ageGroups,
		ReferralSource: referrals,
		MaritalStatus:  marital,
		Family:         *family,
	}
	if err := s.cache.Set(ctx, key, analytics, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache analytics", zap.Error(err))
	}
	return analytics, false, nil
}

// InvalidateCache drops cached dashboard payloads after member mutations.
func (s *DashboardService) InvalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
