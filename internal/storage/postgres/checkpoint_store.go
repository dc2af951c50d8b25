package postgres

import (
	"context"
	"fmt"

	"uniswap-flow-lab/internal/storage"
)

// CheckpointStore implements storage.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// LastBlock returns the last scanned block for a pool.
func (s *CheckpointStore) LastBlock(ctx context.Context, poolName string) (uint64, error) {
	var block uint64
	err := s.pool.QueryRow(ctx,
		`SELECT last_block FROM checkpoints WHERE pool_name = $1`, poolName,
	).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	return block, nil
}

// SetLastBlock upserts the last scanned block for a pool.
func (s *CheckpointStore) SetLastBlock(ctx context.Context, poolName string, block uint64) error {
	query := `
		INSERT INTO checkpoints (pool_name, last_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (pool_name)
		DO UPDATE SET last_block = EXCLUDED.last_block, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, poolName, block); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
