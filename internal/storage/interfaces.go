package storage

import (
	"context"
	"time"

	"uniswap-flow-lab/internal/domain"
)

// EventLogStore is append-only persistence of decoded swap events, keyed by
// (pool, UTC calendar day). Single writer per pool; replayable for analytics.
type EventLogStore interface {
	// Append persists one event under its pool and calendar day.
	// Returns ErrDuplicateKey if (pool, tx_hash, log_index) already exists.
	Append(ctx context.Context, e *domain.SwapEvent) error

	// Load returns all events for a pool with Timestamp after cutoff,
	// sorted by timestamp ascending. A zero cutoff loads everything.
	// Malformed persisted records are skipped, not fatal.
	Load(ctx context.Context, poolName string, cutoff time.Time) ([]*domain.SwapEvent, error)

	// Count returns the number of persisted events for a pool.
	Count(ctx context.Context, poolName string) (int, error)
}

// CheckpointStore maps pool name to the last fully-scanned block number.
// Values are monotonically non-decreasing per pool; read-modify-write on every
// sync call, single-writer assumption.
type CheckpointStore interface {
	// LastBlock returns the last scanned block for a pool.
	// Returns ErrNotFound if the pool has never been synced.
	LastBlock(ctx context.Context, poolName string) (uint64, error)

	// SetLastBlock records the last scanned block for a pool.
	SetLastBlock(ctx context.Context, poolName string, block uint64) error
}

// SnapshotStore is append-only persistence of pool state snapshots,
// keyed by (pool, UTC calendar day) like the event log.
type SnapshotStore interface {
	// Append persists one snapshot under its pool and calendar day.
	Append(ctx context.Context, s *domain.PoolSnapshot) error

	// Load returns snapshots for a pool with Timestamp after cutoff,
	// sorted by timestamp ascending. A zero cutoff loads everything.
	Load(ctx context.Context, poolName string, cutoff time.Time) ([]*domain.PoolSnapshot, error)
}

// FlowBucketStore persists hourly flow aggregates as a timeseries.
type FlowBucketStore interface {
	// InsertBulk adds multiple buckets. Duplicate (pool, hour) rows are
	// handled by the backend's dedup semantics.
	InsertBulk(ctx context.Context, buckets []*domain.FlowBucket) error

	// GetByPool returns buckets for a pool with HourStart >= from,
	// ordered by hour ascending.
	GetByPool(ctx context.Context, poolName string, from int64) ([]*domain.FlowBucket, error)
}
