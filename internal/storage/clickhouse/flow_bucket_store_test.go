package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-flow-lab/internal/domain"
)

func TestFlowBucketStore_InsertAndGetByPool(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFlowBucketStore(conn)

	buckets := []*domain.FlowBucket{
		{PoolName: "sflr-wflr", HourStart: 3600, BuyVolume: 100, SellVolume: 40, BuyCount: 5, SellCount: 2},
		{PoolName: "sflr-wflr", HourStart: 7200, BuyVolume: 20, SellVolume: 80, BuyCount: 1, SellCount: 4},
		{PoolName: "other", HourStart: 3600, BuyVolume: 1, SellVolume: 1, BuyCount: 1, SellCount: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, buckets))

	got, err := store.GetByPool(ctx, "sflr-wflr", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3600), got[0].HourStart)
	assert.Equal(t, 100.0, got[0].BuyVolume)
	assert.Equal(t, int64(7200), got[1].HourStart)
	assert.Equal(t, 4, got[1].SellCount)

	// from filter excludes earlier hours
	got, err = store.GetByPool(ctx, "sflr-wflr", 7200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7200), got[0].HourStart)
}

func TestFlowBucketStore_InsertEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFlowBucketStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
