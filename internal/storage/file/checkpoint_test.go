package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-flow-lab/internal/storage"
)

func TestCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.json")
	store := NewCheckpointStore(path)

	_, err := store.LastBlock(ctx, "weth-usdc")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 12345))
	require.NoError(t, store.SetLastBlock(ctx, "wbtc-weth", 200))

	last, err := store.LastBlock(ctx, "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), last)

	// Overwrite advances the value.
	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 12400))
	last, err = store.LastBlock(ctx, "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(12400), last)
}

func TestCheckpointSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.json")

	store := NewCheckpointStore(path)
	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 777))

	reopened := NewCheckpointStore(path)
	last, err := reopened.LastBlock(ctx, "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(777), last)
}

func TestCheckpointNoPartialFileOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints.json")
	store := NewCheckpointStore(path)

	require.NoError(t, store.SetLastBlock(ctx, "weth-usdc", 1))

	// The write-then-rename leaves no temp file behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoints.json", entries[0].Name())
}
