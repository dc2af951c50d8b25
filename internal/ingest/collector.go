// Package ingest pulls swap events from the ledger and persists them,
// advancing a per-pool checkpoint so repeated syncs only scan new blocks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"uniswap-flow-lab/internal/config"
	"uniswap-flow-lab/internal/evm"
	"uniswap-flow-lab/internal/observability"
	"uniswap-flow-lab/internal/storage"
)

const (
	// DefaultBatchSize keeps each log query within the RPC provider's
	// block-span limit.
	DefaultBatchSize = 25

	// DefaultLookbackBlocks bounds the first sync of a pool with no
	// checkpoint, roughly one hour of blocks.
	DefaultLookbackBlocks = 1800

	// DefaultBatchDelay paces consecutive log queries so a long backfill
	// does not hammer the RPC provider.
	DefaultBatchDelay = 100 * time.Millisecond
)

// Ledger is the chain capability the collector needs. *evm.Client
// implements it; tests substitute a stub.
type Ledger interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, address common.Address, topic common.Hash, fromBlock, toBlock uint64) ([]types.Log, error)
	BlockTime(ctx context.Context, number uint64) (int64, error)
}

// Collector syncs swap events for configured pools into the event log.
// Single writer per pool; not safe for concurrent SyncPool calls on the
// same pool.
type Collector struct {
	ledger      Ledger
	events      storage.EventLogStore
	checkpoints storage.CheckpointStore
	cfg         *config.Config
	batchSize   uint64
	lookback    uint64
	batchDelay  time.Duration
	logger      *log.Logger
}

// CollectorOptions configures a Collector. Ledger, Events, Checkpoints and
// Config are required.
type CollectorOptions struct {
	Ledger         Ledger
	Events         storage.EventLogStore
	Checkpoints    storage.CheckpointStore
	Config         *config.Config
	BatchSize      uint64        // 0 selects DefaultBatchSize
	LookbackBlocks uint64        // 0 selects DefaultLookbackBlocks
	BatchDelay     time.Duration // pause between log queries; zero disables
	Logger         *log.Logger
}

// NewCollector validates options and returns a ready collector.
func NewCollector(opts CollectorOptions) (*Collector, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("new collector: nil ledger")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("new collector: nil event log store")
	}
	if opts.Checkpoints == nil {
		return nil, fmt.Errorf("new collector: nil checkpoint store")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("new collector: nil config")
	}

	c := &Collector{
		ledger:      opts.Ledger,
		events:      opts.Events,
		checkpoints: opts.Checkpoints,
		cfg:         opts.Config,
		batchSize:   opts.BatchSize,
		lookback:    opts.LookbackBlocks,
		batchDelay:  opts.BatchDelay,
		logger:      opts.Logger,
	}
	if c.batchSize == 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.lookback == 0 {
		c.lookback = DefaultLookbackBlocks
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c, nil
}

// SyncPool scans [checkpoint+1, head] for one pool, decodes and persists
// every swap event found, and advances the checkpoint. A pool with no
// checkpoint starts at head minus the lookback. Returns the number of
// newly persisted events.
//
// A batch whose log query fails is retried once; if the retry also fails
// the checkpoint only advances to the block before the first failed batch,
// so the next sync re-scans the gap. Re-scanned duplicates are dropped by
// the event log's identity key.
func (c *Collector) SyncPool(ctx context.Context, poolName string) (int, error) {
	start := time.Now()

	count, err := c.syncPool(ctx, poolName)
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errPartialSync):
		status = "partial"
		err = nil
	default:
		status = "error"
	}
	observability.RecordSyncRun(poolName, status, time.Since(start).Seconds())
	return count, err
}

// errPartialSync marks a sync that persisted events but left a gap behind
// a failed batch. Internal signal only; SyncPool swallows it.
var errPartialSync = errors.New("partial sync")

func (c *Collector) syncPool(ctx context.Context, poolName string) (int, error) {
	pool, err := c.cfg.Pool(poolName)
	if err != nil {
		return 0, err
	}

	head, err := c.ledger.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync %s: %w", poolName, err)
	}
	observability.RecordHeadBlock(poolName, head)

	fromBlock, hadCheckpoint, err := c.resolveFromBlock(ctx, poolName, head)
	if err != nil {
		return 0, err
	}
	if fromBlock >= head {
		return 0, nil
	}

	address := common.HexToAddress(pool.Address)
	blockTimes := make(map[uint64]int64)

	var (
		count       int
		firstFailed uint64
		hasFailed   bool
	)
	for batchStart := fromBlock; batchStart <= head; batchStart += c.batchSize {
		if batchStart > fromBlock && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case <-time.After(c.batchDelay):
			}
		}

		batchEnd := batchStart + c.batchSize - 1
		if batchEnd > head {
			batchEnd = head
		}

		logs, err := c.fetchBatch(ctx, poolName, address, batchStart, batchEnd)
		if err != nil {
			if !hasFailed {
				hasFailed = true
				firstFailed = batchStart
			}
			continue
		}

		stored, failed := c.storeBatch(ctx, poolName, logs, blockTimes)
		count += stored
		if failed && !hasFailed {
			hasFailed = true
			firstFailed = batchStart
		}
	}

	if !hasFailed {
		if err := c.checkpoints.SetLastBlock(ctx, poolName, head); err != nil {
			return count, fmt.Errorf("sync %s: advance checkpoint: %w", poolName, err)
		}
		return count, nil
	}

	// Leave the gap behind the first failed batch scannable next time.
	// A pool with no checkpoint yet gets one pinned here too; otherwise
	// the next sync would re-derive its start from a newer head and the
	// gap could slide out of the lookback window.
	if firstFailed > fromBlock || (!hadCheckpoint && firstFailed > 0) {
		if err := c.checkpoints.SetLastBlock(ctx, poolName, firstFailed-1); err != nil {
			return count, fmt.Errorf("sync %s: advance checkpoint: %w", poolName, err)
		}
	}
	c.logger.Printf("sync %s: partial, checkpoint held before block %d", poolName, firstFailed)
	return count, errPartialSync
}

func (c *Collector) resolveFromBlock(ctx context.Context, poolName string, head uint64) (uint64, bool, error) {
	last, err := c.checkpoints.LastBlock(ctx, poolName)
	switch {
	case err == nil:
		return last + 1, true, nil
	case errors.Is(err, storage.ErrNotFound):
		if head <= c.lookback {
			return 0, false, nil
		}
		return head - c.lookback, false, nil
	default:
		return 0, false, fmt.Errorf("sync %s: read checkpoint: %w", poolName, err)
	}
}

// fetchBatch queries one block sub-range, retrying once on failure.
func (c *Collector) fetchBatch(ctx context.Context, poolName string, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	logs, err := c.ledger.FilterLogs(ctx, address, evm.SwapEventTopic, fromBlock, toBlock)
	if err == nil {
		return logs, nil
	}

	observability.RecordBatchRetried(poolName)
	c.logger.Printf("sync %s: batch [%d, %d] failed, retrying: %v", poolName, fromBlock, toBlock, err)

	logs, err = c.ledger.FilterLogs(ctx, address, evm.SwapEventTopic, fromBlock, toBlock)
	if err != nil {
		observability.RecordBatchFailed(poolName)
		c.logger.Printf("sync %s: batch [%d, %d] failed permanently: %v", poolName, fromBlock, toBlock, err)
		return nil, err
	}
	return logs, nil
}

// storeBatch decodes and persists one batch of raw logs. Returns the number
// of newly stored events and whether any event could not be persisted.
// Decode failures only skip the one log; timestamp and append failures mark
// the batch failed so the range is re-scanned.
func (c *Collector) storeBatch(ctx context.Context, poolName string, logs []types.Log, blockTimes map[uint64]int64) (int, bool) {
	var (
		stored int
		failed bool
	)
	for _, lg := range logs {
		event, err := evm.DecodeSwapLog(lg)
		if err != nil {
			observability.RecordDecodeError()
			c.logger.Printf("sync %s: %v", poolName, err)
			continue
		}
		observability.RecordEventIngested()

		ts, ok := blockTimes[event.Block]
		if !ok {
			ts, err = c.ledger.BlockTime(ctx, event.Block)
			if err != nil {
				c.logger.Printf("sync %s: block %d timestamp: %v", poolName, event.Block, err)
				failed = true
				continue
			}
			blockTimes[event.Block] = ts
		}

		event.PoolName = poolName
		event.Timestamp = ts

		switch err := c.events.Append(ctx, event); {
		case err == nil:
			stored++
			observability.RecordEventStored(poolName)
		case errors.Is(err, storage.ErrDuplicateKey):
			// Already stored by an earlier scan of this range.
		default:
			c.logger.Printf("sync %s: append %s/%d: %v", poolName, event.TxHash, event.LogIndex, err)
			failed = true
		}
	}
	return stored, failed
}

// SyncAll syncs every enabled pool in order. Per-pool failures are logged
// and do not stop the run. Returns the total number of new events.
func (c *Collector) SyncAll(ctx context.Context) (int, error) {
	var total int
	for _, name := range c.cfg.EnabledPools() {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		count, err := c.SyncPool(ctx, name)
		if err != nil {
			c.logger.Printf("sync %s: %v", name, err)
			continue
		}
		if count > 0 {
			c.logger.Printf("sync %s: %d new events", name, count)
		}
		total += count
	}
	return total, nil
}
