package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-flow-lab/internal/config"
	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/evm"
	"uniswap-flow-lab/internal/storage"
	"uniswap-flow-lab/internal/storage/memory"
)

const testPoolAddress = "0x1111111111111111111111111111111111111111"

// stubLedger serves canned logs and records every FilterLogs call.
type stubLedger struct {
	mu        sync.Mutex
	head      uint64
	logs      []types.Log
	failures  map[uint64]int // batch start block -> remaining failures
	calls     [][2]uint64
	timeCalls int
}

func (s *stubLedger) BlockNumber(ctx context.Context) (uint64, error) {
	return s.head, nil
}

func (s *stubLedger) FilterLogs(ctx context.Context, address common.Address, topic common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, [2]uint64{fromBlock, toBlock})
	if s.failures[fromBlock] > 0 {
		s.failures[fromBlock]--
		return nil, errors.New("rpc: query limit exceeded")
	}

	var out []types.Log
	for _, lg := range s.logs {
		if lg.Address == address && lg.BlockNumber >= fromBlock && lg.BlockNumber <= toBlock {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (s *stubLedger) BlockTime(ctx context.Context, number uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeCalls++
	return int64(1_700_000_000 + number), nil
}

// swapLog builds a raw Swap log the decoder accepts.
func swapLog(block uint64, logIndex uint, amount0, amount1 int64) types.Log {
	data := make([]byte, 0, 5*32)
	data = append(data, int256Bytes(big.NewInt(amount0))...)
	data = append(data, int256Bytes(big.NewInt(amount1))...)
	data = append(data, common.LeftPadBytes(big.NewInt(79228162514264337).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(1e18).Bytes(), 32)...)
	data = append(data, int256Bytes(big.NewInt(100))...)

	return types.Log{
		Address:     common.HexToAddress(testPoolAddress),
		Topics:      []common.Hash{evm.SwapEventTopic, senderTopic(), recipientTopic(block)},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash(fmt.Sprintf("0x%064x", block*1000+uint64(logIndex))),
		Index:       logIndex,
	}
}

func int256Bytes(v *big.Int) []byte {
	if v.Sign() >= 0 {
		return common.LeftPadBytes(v.Bytes(), 32)
	}
	twos := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 256), v)
	return common.LeftPadBytes(twos.Bytes(), 32)
}

func senderTopic() common.Hash {
	return common.HexToHash("0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
}

func recipientTopic(block uint64) common.Hash {
	return common.HexToHash(fmt.Sprintf("0x%064x", block))
}

func testConfig() *config.Config {
	return &config.Config{Pools: map[string]config.PoolConfig{
		"weth-usdc": {Address: testPoolAddress, Token0: "WETH", Token1: "USDC", Fee: 3000, Enabled: true},
	}}
}

func newTestCollector(t *testing.T, ledger *stubLedger, lookback uint64) (*Collector, *memory.EventLogStore, *memory.CheckpointStore) {
	t.Helper()

	events := memory.NewEventLogStore()
	checkpoints := memory.NewCheckpointStore()
	c, err := NewCollector(CollectorOptions{
		Ledger:         ledger,
		Events:         events,
		Checkpoints:    checkpoints,
		Config:         testConfig(),
		LookbackBlocks: lookback,
		Logger:         log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return c, events, checkpoints
}

func TestNewCollectorValidatesOptions(t *testing.T) {
	_, err := NewCollector(CollectorOptions{})
	require.Error(t, err)
}

func TestSyncPoolFirstSyncUsesLookback(t *testing.T) {
	ledger := &stubLedger{head: 100, logs: []types.Log{swapLog(60, 0, -500, 900)}}
	c, events, checkpoints := newTestCollector(t, ledger, 50)

	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// [50, 74] [75, 99] [100, 100]
	require.Equal(t, [][2]uint64{{50, 74}, {75, 99}, {100, 100}}, ledger.calls)

	last, err := checkpoints.LastBlock(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), last)

	stored, err := events.Load(context.Background(), "weth-usdc", time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "weth-usdc", stored[0].PoolName)
	assert.Equal(t, uint64(60), stored[0].Block)
	assert.Equal(t, int64(1_700_000_060), stored[0].Timestamp)
	assert.Equal(t, domain.DirectionBuyToken0, stored[0].Direction)
}

func TestSyncPoolResumesFromCheckpoint(t *testing.T) {
	ledger := &stubLedger{head: 100}
	c, _, checkpoints := newTestCollector(t, ledger, 50)
	require.NoError(t, checkpoints.SetLastBlock(context.Background(), "weth-usdc", 90))

	_, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	require.Equal(t, [][2]uint64{{91, 100}}, ledger.calls)
}

func TestSyncPoolNoopAtHead(t *testing.T) {
	ledger := &stubLedger{head: 100}
	c, _, checkpoints := newTestCollector(t, ledger, 50)
	require.NoError(t, checkpoints.SetLastBlock(context.Background(), "weth-usdc", 100))

	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, ledger.calls)

	// Checkpoint ahead of head is also a no-op, not an underflow.
	require.NoError(t, checkpoints.SetLastBlock(context.Background(), "weth-usdc", 105))
	count, err = c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncPoolRetriesFailedBatchOnce(t *testing.T) {
	ledger := &stubLedger{
		head:     100,
		logs:     []types.Log{swapLog(80, 0, 300, -100)},
		failures: map[uint64]int{75: 1},
	}
	c, _, checkpoints := newTestCollector(t, ledger, 50)

	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The failing batch appears twice: first attempt and retry.
	require.Equal(t, [][2]uint64{{50, 74}, {75, 99}, {75, 99}, {100, 100}}, ledger.calls)

	last, err := checkpoints.LastBlock(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), last)
}

func TestSyncPoolHoldsCheckpointBeforeFailedBatch(t *testing.T) {
	ledger := &stubLedger{
		head: 100,
		logs: []types.Log{
			swapLog(60, 0, -500, 900),
			swapLog(100, 0, 200, -40),
		},
		failures: map[uint64]int{75: 2},
	}
	c, events, checkpoints := newTestCollector(t, ledger, 50)

	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Later batches still ran; the checkpoint stops before the gap.
	last, err := checkpoints.LastBlock(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(74), last)

	n, err := events.Count(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncPoolFirstSyncPinsCheckpointOnFailedBatch(t *testing.T) {
	ledger := &stubLedger{
		head:     100,
		logs:     []types.Log{swapLog(80, 0, -500, 900)},
		failures: map[uint64]int{50: 2},
	}
	c, _, checkpoints := newTestCollector(t, ledger, 50)

	// No checkpoint exists yet and the very first batch fails permanently.
	// The checkpoint must still be pinned before the gap; otherwise the
	// next sync would restart from a newer head minus lookback and the
	// failed range could fall out of the window.
	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	last, err := checkpoints.LastBlock(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(49), last)

	// The next sync re-scans the gap from the pinned checkpoint.
	ledger.calls = nil
	_, err = c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	require.NotEmpty(t, ledger.calls)
	assert.Equal(t, [2]uint64{50, 74}, ledger.calls[0])
}

func TestSyncPoolPacesBatches(t *testing.T) {
	ledger := &stubLedger{head: 100}
	c, err := NewCollector(CollectorOptions{
		Ledger:         ledger,
		Events:         memory.NewEventLogStore(),
		Checkpoints:    memory.NewCheckpointStore(),
		Config:         testConfig(),
		LookbackBlocks: 50,
		BatchDelay:     20 * time.Millisecond,
		Logger:         log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	// Three batches, delay applied between them but not before the first.
	start := time.Now()
	_, err = c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	require.Len(t, ledger.calls, 3)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSyncPoolDelayObservesCancellation(t *testing.T) {
	ledger := &stubLedger{head: 100}
	c, err := NewCollector(CollectorOptions{
		Ledger:         ledger,
		Events:         memory.NewEventLogStore(),
		Checkpoints:    memory.NewCheckpointStore(),
		Config:         testConfig(),
		LookbackBlocks: 50,
		BatchDelay:     time.Hour,
		Logger:         log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = c.SyncPool(ctx, "weth-usdc")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, ledger.calls, 1)
}

func TestSyncPoolRescanDropsDuplicates(t *testing.T) {
	ledger := &stubLedger{
		head:     100,
		logs:     []types.Log{swapLog(80, 0, -500, 900)},
		failures: map[uint64]int{75: 2},
	}
	c, events, checkpoints := newTestCollector(t, ledger, 50)

	// First sync: the batch [75, 99] fails permanently, so block 80's
	// event is missed and the checkpoint holds at 74.
	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Zero(t, count)

	last, err := checkpoints.LastBlock(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(74), last)

	// Second sync re-scans [75, head] and picks the event up.
	count, err = c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Third sync from the advanced checkpoint stores nothing new.
	count, err = c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err := events.Count(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncPoolCachesBlockTimestamps(t *testing.T) {
	ledger := &stubLedger{
		head: 100,
		logs: []types.Log{
			swapLog(60, 0, -500, 900),
			swapLog(60, 1, -300, 500),
			swapLog(61, 0, 100, -20),
		},
	}
	c, _, _ := newTestCollector(t, ledger, 50)

	count, err := c.SyncPool(context.Background(), "weth-usdc")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 2, ledger.timeCalls)
}

func TestSyncPoolUnknownPool(t *testing.T) {
	c, _, _ := newTestCollector(t, &stubLedger{head: 100}, 50)

	_, err := c.SyncPool(context.Background(), "nope")
	require.ErrorIs(t, err, config.ErrUnknownPool)
}

func TestSyncAll(t *testing.T) {
	ledger := &stubLedger{head: 100, logs: []types.Log{swapLog(90, 0, -1, 2)}}
	events := memory.NewEventLogStore()
	cfg := testConfig()
	cfg.Pools["disabled"] = config.PoolConfig{Address: testPoolAddress, Enabled: false}

	c, err := NewCollector(CollectorOptions{
		Ledger:         ledger,
		Events:         events,
		Checkpoints:    memory.NewCheckpointStore(),
		Config:         cfg,
		LookbackBlocks: 20,
		Logger:         log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	total, err := c.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// Only the enabled pool was scanned.
	for _, call := range ledger.calls {
		assert.GreaterOrEqual(t, call[0], uint64(80))
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	ledger := &stubLedger{head: 100}
	c, _, _ := newTestCollector(t, ledger, 10)
	s := NewScheduler(c, DefaultInterval, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
}

var _ storage.EventLogStore = (*memory.EventLogStore)(nil)
