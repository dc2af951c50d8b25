package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-flow-lab/internal/evm"
	"uniswap-flow-lab/internal/storage/memory"
)

type stubStateReader struct {
	head  uint64
	state evm.PoolState
	err   error
}

func (s *stubStateReader) BlockNumber(ctx context.Context) (uint64, error) {
	return s.head, nil
}

func (s *stubStateReader) BlockTime(ctx context.Context, number uint64) (int64, error) {
	return int64(1_700_000_000 + number), nil
}

func (s *stubStateReader) PoolState(ctx context.Context, address common.Address, block uint64) (evm.PoolState, error) {
	if s.err != nil {
		return evm.PoolState{}, s.err
	}
	return s.state, nil
}

func TestSnapshotPool(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	ledger := &stubStateReader{
		head: 500,
		state: evm.PoolState{
			SqrtPriceX96: q96,
			Tick:         -120,
			Liquidity:    big.NewInt(7e15),
		},
	}
	store := memory.NewSnapshotStore()

	sn, err := NewSnapshotter(ledger, store, testConfig(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.NoError(t, sn.SnapshotPool(context.Background(), "weth-usdc"))

	snaps, err := store.Load(context.Background(), "weth-usdc", time.Time{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	got := snaps[0]
	assert.Equal(t, testPoolAddress, got.Pool)
	assert.Equal(t, uint64(500), got.Block)
	assert.Equal(t, int64(1_700_000_500), got.Timestamp)
	assert.Equal(t, -120, got.Tick)
	assert.Zero(t, q96.Cmp(got.SqrtPriceX96))
	assert.InDelta(t, 1.0, got.Price, 1e-12)
}

func TestSnapshotAllContinuesOnFailure(t *testing.T) {
	ledger := &stubStateReader{head: 500, err: errors.New("execution reverted")}
	store := memory.NewSnapshotStore()

	sn, err := NewSnapshotter(ledger, store, testConfig(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.NoError(t, sn.SnapshotAll(context.Background()))

	snaps, err := store.Load(context.Background(), "weth-usdc", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSnapshotPoolUnknownPool(t *testing.T) {
	sn, err := NewSnapshotter(&stubStateReader{}, memory.NewSnapshotStore(), testConfig(), nil)
	require.NoError(t, err)
	require.Error(t, sn.SnapshotPool(context.Background(), "nope"))
}
