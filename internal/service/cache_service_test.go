package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("redis down")
}

func (brokenCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis down")
}

func (brokenCacheRepo) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func (brokenCacheRepo) DeleteByPattern(context.Context, string) error {
	return errors.New("redis down")
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, 0, nil, true)
	ctx := context.Background()

	var dest []string
	hit, err := svc.Get(ctx, "aggregation:ranking", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "aggregation:ranking", []string{"10A1"}, 0))
	hit, err = svc.Get(ctx, "aggregation:ranking", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"10A1"}, dest)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))

	require.NoError(t, svc.InvalidateAggregations(ctx))
	hit, err = svc.Get(ctx, "aggregation:ranking", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabledAndBroken(t *testing.T) {
	ctx := context.Background()
	var nilSvc *CacheService
	hit, err := nilSvc.Get(ctx, "k", nil)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.InvalidateAggregations(ctx))

	disabled := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	assert.False(t, disabled.Enabled())

	broken := NewCacheService(brokenCacheRepo{}, nil, 0, nil, true)
	_, err = broken.Get(ctx, "k", new(int))
	assert.Error(t, err)
	assert.Error(t, broken.Set(ctx, "k", 1, 0))
	assert.Error(t, broken.Invalidate(ctx, "aggregation:*"))
	assert.Error(t, broken.InvalidateAggregations(ctx))
	_, ok := broken.AggregationGeneration(ctx)
	assert.False(t, ok)
}

func TestCacheServiceGenerationBumpedOnInvalidate(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, true)
	ctx := context.Background()

	generation, ok := svc.AggregationGeneration(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(0), generation)

	require.NoError(t, svc.InvalidateAggregations(ctx))
	require.NoError(t, svc.InvalidateAggregations(ctx))
	generation, ok = svc.AggregationGeneration(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), generation)
}

func TestMetricsServiceCountsLedgerActivity(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStorageCall("append", "conduct_events", time.Millisecond, nil)
	m.ObserveStorageCall("read", "conduct_events", time.Millisecond, errors.New("timeout"))
	m.RecordLedgerEvent("STUDENT", -2)
	m.RecordLedgerEvent("STUDENT", 3)
	m.RecordPlanSubmission("LATE")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageErrors.WithLabelValues("read", "conduct_events")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerEvents.WithLabelValues("STUDENT", "demerit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planSubmissions.WithLabelValues("LATE")))

	var nilMetrics *MetricsService
	nilMetrics.RecordLedgerEvent("STUDENT", 1)
	nilMetrics.ObserveStorageCall("read", "x", 0, nil)
}
