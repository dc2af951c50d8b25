package memory

import (
	"context"
	"sync"

	"uniswap-flow-lab/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu     sync.RWMutex
	blocks map[string]uint64
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{blocks: make(map[string]uint64)}
}

// LastBlock returns the last scanned block for a pool.
func (s *CheckpointStore) LastBlock(_ context.Context, poolName string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.blocks[poolName]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return block, nil
}

// SetLastBlock records the last scanned block for a pool.
func (s *CheckpointStore) SetLastBlock(_ context.Context, poolName string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[poolName] = block
	return nil
}
