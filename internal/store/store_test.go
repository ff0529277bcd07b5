package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb, logger: zap.NewNop()}, mr
}

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	val := map[string]string{"status": "bull"}
	require.NoError(t, store.SetJSON(ctx, "monitor:market", val, time.Minute))

	var got map[string]string
	require.NoError(t, store.GetJSON(ctx, "monitor:market", &got))
	assert.Equal(t, "bull", got["status"])
}

func TestSaveSnapshot_WithoutPostgres(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	snap := model.PairsSnapshotEvent{
		GeneratedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Count:       1,
		Pairs: []model.MonitoringPair{{
			BondCode:  "113001.SH",
			BondPrice: decimal.RequireFromString("120.5"),
		}},
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap, 10*time.Minute))
	assert.True(t, mr.Exists(LatestPairsKey))
	assert.Equal(t, 10*time.Minute, mr.TTL(LatestPairsKey))

	got, err := store.LatestPairs(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Pairs, 1)
	assert.True(t, decimal.RequireFromString("120.5").Equal(got.Pairs[0].BondPrice))
}

func TestLatestPairs_Expired(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveSnapshot(ctx, model.PairsSnapshotEvent{Count: 3}, time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := store.LatestPairs(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWrites_NoopWithoutPostgres(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	assert.NoError(t, store.Migrate(ctx))
	assert.NoError(t, store.UpsertBonds(ctx, []model.BondMetadata{{Code: "113001.SH"}}))
	assert.NoError(t, store.RecordPriceTicks(ctx, []model.PriceSnapshot{{Code: "600000.SH"}}))
	assert.NoError(t, store.RecordSignals(ctx, []model.Signal{{StockCode: "600000.SH"}}))
}

func TestReads_FailWithoutPostgres(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	_, err := store.DatabaseUsage(ctx, 512)
	assert.ErrorIs(t, err, ErrPostgresUnavailable)
	_, err = store.SystemCounts(ctx)
	assert.ErrorIs(t, err, ErrPostgresUnavailable)
	_, err = store.Cleanup(ctx, model.CleanupRequest{DataTypes: []string{"signals"}, TimeRange: model.TimeRange{Hours: 24}})
	assert.ErrorIs(t, err, ErrPostgresUnavailable)
}

func TestCleanup_ValidationBeforePostgres(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	_, err := store.Cleanup(context.Background(), model.CleanupRequest{DataTypes: []string{"balances"}})
	assert.ErrorIs(t, err, ErrInvalidCleanup)
}

// --- HealthCheck Tests ---

func TestHealthCheck_Success(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestHealthCheck_RedisNil(t *testing.T) {
	store := &HybridStore{redis: nil}
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis not initialized")
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &HybridStore{redis: rdb}

	// Close miniredis to simulate failure
	mr.Close()

	err = store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

// --- Close Tests ---

func TestClose_RedisOnly(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.Close())
}

func TestClose_NilComponents(t *testing.T) {
	store := &HybridStore{}
	assert.NoError(t, store.Close())
}

func TestNewHybrid_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewHybrid(RedisConfig{Addr: addr}, "", PGPoolConfig{}, nil)
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestNewHybrid_RedisOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, "", PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, s.PG)
	assert.NoError(t, s.Close())
}
