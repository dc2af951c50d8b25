package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"uniswap-flow-lab/internal/storage"
)

// CheckpointStore persists pool → last-scanned-block as a single JSON object.
// Read-modify-write on every sync; safe for one writer only.
type CheckpointStore struct {
	path string
	mu   sync.Mutex
}

// NewCheckpointStore creates a checkpoint store backed by a JSON file.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// LastBlock returns the last scanned block for a pool.
func (s *CheckpointStore) LastBlock(_ context.Context, poolName string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks, err := s.read()
	if err != nil {
		return 0, err
	}

	block, ok := blocks[poolName]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return block, nil
}

// SetLastBlock records the last scanned block for a pool.
func (s *CheckpointStore) SetLastBlock(_ context.Context, poolName string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks, err := s.read()
	if err != nil {
		return err
	}
	blocks[poolName] = block

	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshal checkpoints: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated checkpoint file.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (s *CheckpointStore) read() (map[string]uint64, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]uint64), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	blocks := make(map[string]uint64)
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("parse checkpoint file: %w", err)
	}
	return blocks, nil
}
