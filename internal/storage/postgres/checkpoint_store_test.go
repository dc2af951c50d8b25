package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-flow-lab/internal/storage"
)

func TestCheckpointStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCheckpointStore(pool)

	_, err := store.LastBlock(ctx, "weth-usdc")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 12345))
	last, err := store.LastBlock(ctx, "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), last)

	// Upsert advances the value in place.
	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 12400))
	last, err = store.LastBlock(ctx, "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(12400), last)

	// Pools are independent.
	require.NoError(t, store.SetLastBlock(ctx, "wbtc-weth", 7))
	last, err = store.LastBlock(ctx, "wbtc-weth")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), last)
}
