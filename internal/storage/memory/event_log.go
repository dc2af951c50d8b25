// Package memory provides in-memory implementations of the storage
// interfaces, used in tests and for throwaway collector runs.
package memory

import (
	"context"
	"sync"
	"time"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

type eventKey struct {
	Pool     string
	TxHash   string
	LogIndex uint
}

// EventLogStore is an in-memory implementation of storage.EventLogStore.
type EventLogStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SwapEvent // pool name → events in append order
	keys map[eventKey]bool
}

// NewEventLogStore creates a new in-memory event log store.
func NewEventLogStore() *EventLogStore {
	return &EventLogStore{
		data: make(map[string][]*domain.SwapEvent),
		keys: make(map[eventKey]bool),
	}
}

// Append adds one event. Returns ErrDuplicateKey on an existing identity key.
func (s *EventLogStore) Append(_ context.Context, e *domain.SwapEvent) error {
	if e == nil || e.PoolName == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey{Pool: e.PoolName, TxHash: e.TxHash, LogIndex: e.LogIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.data[e.PoolName] = append(s.data[e.PoolName], &cp)
	s.keys[key] = true
	return nil
}

// Load returns events after cutoff, sorted by timestamp.
func (s *EventLogStore) Load(_ context.Context, poolName string, cutoff time.Time) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*domain.SwapEvent
	for _, e := range s.data[poolName] {
		if !cutoff.IsZero() && e.Timestamp <= cutoff.Unix() {
			continue
		}
		cp := *e
		events = append(events, &cp)
	}

	domain.SortSwapEvents(events)
	return events, nil
}

// Count returns the number of stored events for a pool.
func (s *EventLogStore) Count(_ context.Context, poolName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[poolName]), nil
}
