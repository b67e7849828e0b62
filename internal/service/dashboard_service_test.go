package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/internal/models"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
)

type mockDashboardRepo struct {
	stats *models.DashboardStats
	calls int
	err   error
}

func (m *mockDashboardRepo) Stats(ctx context.Context) (*models.DashboardStats, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *mockDashboardRepo) Growth(ctx context.Context, days int) ([]models.GrowthPoint, error) {
	return []models.GrowthPoint{{Date: "2026-08-01", NewMembers: 3}}, nil
}

func (m *mockDashboardRepo) AgeGroups(ctx context.Context) ([]models.BucketCount, error) {
	return []models.BucketCount{{Label: "18-30", Count: 12}}, nil
}

func (m *mockDashboardRepo) ReferralSources(ctx context.Context) ([]models.BucketCount, error) {
	return []models.BucketCount{{Label: "friend", Count: 7}}, nil
}

func (m *mockDashboardRepo) MaritalStatuses(ctx context.Context) ([]models.BucketCount, error) {
	return []models.BucketCount{{Label: "married", Count: 9}}, nil
}

func (m *mockDashboardRepo) FamilyStats(ctx context.Context) (*models.FamilyStats, error) {
	return &models.FamilyStats{AverageChildren: 1.4, MaxChildren: 4, FamiliesWithChildren: 11}, nil
}

type memoryCache struct {
	values map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = make(map[string][]byte)
	return nil
}

func newDashboardFixture(repo *mockDashboardRepo) (*DashboardService, *memoryCache) {
	cache := &memoryCache{}
	cacheSvc := NewCacheService(cache, nil, time.Minute, zap.NewNop(), true)
	return NewDashboardService(repo, cacheSvc, zap.NewNop(), time.Minute, time.Second), cache
}

func TestDashboardServiceStatsCaches(t *testing.T) {
	repo := &mockDashboardRepo{stats: &models.DashboardStats{TotalMembers: 42}}
	svc, _ := newDashboardFixture(repo)

	stats, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, stats.TotalMembers)

	stats, cached, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 42, stats.TotalMembers)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardServiceStatsStorageFailure(t *testing.T) {
	repo := &mockDashboardRepo{err: assert.AnError}
	svc, _ := newDashboardFixture(repo)

	_, _, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStorageUnavailable))
}

func TestDashboardServiceAnalytics(t *testing.T) {
	repo := &mockDashboardRepo{}
	svc, _ := newDashboardFixture(repo)

	analytics, cached, err := svc.Analytics(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, analytics.Growth, 1)
	assert.Equal(t, 3, analytics.Growth[0].NewMembers)
	assert.Equal(t, 11, analytics.Family.FamiliesWithChildren)

	_, cached, err = svc.Analytics(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestDashboardServiceInvalidateCache(t *testing.T) {
	repo := &mockDashboardRepo{stats: &models.DashboardStats{TotalMembers: 1}}
	svc, cache := newDashboardFixture(repo)

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cache.values)

	svc.InvalidateCache(context.Background())
	assert.Empty(t, cache.values)

	_, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}
