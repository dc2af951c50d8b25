package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PoolSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]*domain.PoolSnapshot)}
}

// Append adds one snapshot.
func (s *SnapshotStore) Append(_ context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.data[snap.PoolName] = append(s.data[snap.PoolName], &cp)
	return nil
}

// Load returns snapshots after cutoff, sorted by timestamp.
func (s *SnapshotStore) Load(_ context.Context, poolName string, cutoff time.Time) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps []*domain.PoolSnapshot
	for _, snap := range s.data[poolName] {
		if !cutoff.IsZero() && snap.Timestamp <= cutoff.Unix() {
			continue
		}
		cp := *snap
		snaps = append(snaps, &cp)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}
