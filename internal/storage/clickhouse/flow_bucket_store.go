package clickhouse

import (
	"context"
	"fmt"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// FlowBucketStore implements storage.FlowBucketStore using ClickHouse.
// The backing table uses ReplacingMergeTree keyed on (pool_name, hour_start),
// so re-inserting a recomputed bucket supersedes the old row.
type FlowBucketStore struct {
	conn *Conn
}

// NewFlowBucketStore creates a new FlowBucketStore.
func NewFlowBucketStore(conn *Conn) *FlowBucketStore {
	return &FlowBucketStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FlowBucketStore = (*FlowBucketStore)(nil)

// InsertBulk adds multiple hourly buckets in one batch.
func (s *FlowBucketStore) InsertBulk(ctx context.Context, buckets []*domain.FlowBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO flow_buckets (
			pool_name, hour_start, buy_volume, sell_volume, buy_count, sell_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range buckets {
		err = batch.Append(
			b.PoolName, uint64(b.HourStart),
			b.BuyVolume, b.SellVolume,
			uint32(b.BuyCount), uint32(b.SellCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByPool retrieves buckets for a pool with hour_start >= from, hour ASC.
func (s *FlowBucketStore) GetByPool(ctx context.Context, poolName string, from int64) ([]*domain.FlowBucket, error) {
	query := `
		SELECT pool_name, hour_start, buy_volume, sell_volume, buy_count, sell_count
		FROM flow_buckets FINAL
		WHERE pool_name = ? AND hour_start >= ?
		ORDER BY hour_start ASC
	`

	rows, err := s.conn.Query(ctx, query, poolName, uint64(from))
	if err != nil {
		return nil, fmt.Errorf("query flow buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*domain.FlowBucket
	for rows.Next() {
		var (
			b         domain.FlowBucket
			hourStart uint64
			buy, sell uint32
		)
		if err := rows.Scan(&b.PoolName, &hourStart, &b.BuyVolume, &b.SellVolume, &buy, &sell); err != nil {
			return nil, fmt.Errorf("scan flow bucket: %w", err)
		}
		b.HourStart = int64(hourStart)
		b.BuyCount = int(buy)
		b.SellCount = int(sell)
		buckets = append(buckets, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow buckets: %w", err)
	}
	return buckets, nil
}
