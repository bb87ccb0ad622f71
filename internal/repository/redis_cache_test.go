package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) *RedisCacheRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	cache, client, err := NewRedisCacheRepository(addr, "", 0, time.Minute, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return cache
}

func TestRedisCachePageRoundTrip(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()
	require.NoError(t, cache.InvalidatePages(ctx))

	miss, err := cache.GetPage(ctx, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, miss)

	items := []domain.GatewaySubscription{{ID: "sub_1", Status: "active", StartAt: 1704067200}}
	require.NoError(t, cache.SetPage(ctx, 10, 0, items))

	got, err := cache.GetPage(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	require.NoError(t, cache.InvalidatePages(ctx))
	got, err = cache.GetPage(ctx, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPageKey(t *testing.T) {
	assert.Equal(t, "gateway_subscriptions:10:20", pageKey(10, 20))
}
