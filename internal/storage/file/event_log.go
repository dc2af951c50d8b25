// Package file implements the storage interfaces over newline-delimited JSON
// files, one file per (pool, UTC calendar day). This is the canonical backend
// for single-host collectors; the postgres backend covers shared deployments.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// swapRecord is the persisted JSONL shape of a swap event. Big integer fields
// are encoded as decimal strings so records survive any JSON number precision.
type swapRecord struct {
	Block        uint64 `json:"block"`
	TxHash       string `json:"tx_hash"`
	LogIndex     uint   `json:"log_index"`
	Timestamp    int64  `json:"timestamp"`
	Datetime     string `json:"datetime"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int    `json:"tick"`
	Direction    string `json:"direction"`
	Pool         string `json:"pool"`
	PoolName     string `json:"pool_name"`
}

// eventKey is the identity key for in-process deduplication.
type eventKey struct {
	Pool     string
	TxHash   string
	LogIndex uint
}

// EventLogStore is a file-backed implementation of storage.EventLogStore.
type EventLogStore struct {
	dir string

	mu     sync.Mutex
	seen   map[eventKey]bool
	loaded map[string]bool // pools whose existing keys are in seen
}

// NewEventLogStore creates an event log store rooted at dir.
func NewEventLogStore(dir string) *EventLogStore {
	return &EventLogStore{
		dir:    dir,
		seen:   make(map[eventKey]bool),
		loaded: make(map[string]bool),
	}
}

// Append persists one event under (pool, event's UTC day).
// Uniqueness is enforced on the identity key (pool, tx hash, log index); the
// key index is rebuilt from disk on the first append for a pool, so a
// re-scanned range never duplicates records across restarts.
func (s *EventLogStore) Append(_ context.Context, e *domain.SwapEvent) error {
	if e == nil || e.PoolName == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey{Pool: e.PoolName, TxHash: e.TxHash, LogIndex: e.LogIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadKeysLocked(e.PoolName); err != nil {
		return err
	}
	if s.seen[key] {
		return storage.ErrDuplicateKey
	}

	day := time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02")
	poolDir := filepath.Join(s.dir, e.PoolName)
	if err := os.MkdirAll(poolDir, 0o755); err != nil {
		return fmt.Errorf("create pool dir: %w", err)
	}

	rec := swapRecord{
		Block:        e.Block,
		TxHash:       e.TxHash,
		LogIndex:     e.LogIndex,
		Timestamp:    e.Timestamp,
		Datetime:     time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339),
		Sender:       e.Sender,
		Recipient:    e.Recipient,
		Amount0:      bigString(e.Amount0),
		Amount1:      bigString(e.Amount1),
		SqrtPriceX96: bigString(e.SqrtPriceX96),
		Liquidity:    bigString(e.Liquidity),
		Tick:         e.Tick,
		Direction:    e.Direction,
		Pool:         e.Pool,
		PoolName:     e.PoolName,
	}

	if err := appendJSONL(filepath.Join(poolDir, day+".jsonl"), rec); err != nil {
		return err
	}

	s.seen[key] = true
	return nil
}

// loadKeysLocked fills the dedup index with a pool's persisted identity keys.
func (s *EventLogStore) loadKeysLocked(poolName string) error {
	if s.loaded[poolName] {
		return nil
	}

	files, err := dailyFiles(filepath.Join(s.dir, poolName))
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := scanJSONL(path, func(line []byte) {
			var rec swapRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return
			}
			s.seen[eventKey{Pool: poolName, TxHash: rec.TxHash, LogIndex: rec.LogIndex}] = true
		}); err != nil {
			return err
		}
	}

	s.loaded[poolName] = true
	return nil
}

// Load reads all daily files for a pool, skipping malformed lines, filters by
// cutoff and re-sorts by timestamp. File order is append order, not time order.
func (s *EventLogStore) Load(_ context.Context, poolName string, cutoff time.Time) ([]*domain.SwapEvent, error) {
	files, err := dailyFiles(filepath.Join(s.dir, poolName))
	if err != nil {
		return nil, err
	}

	var events []*domain.SwapEvent
	for _, path := range files {
		if err := scanJSONL(path, func(line []byte) {
			var rec swapRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return // skip malformed record
			}
			if !cutoff.IsZero() && rec.Timestamp <= cutoff.Unix() {
				return
			}
			events = append(events, rec.toDomain())
		}); err != nil {
			return nil, err
		}
	}

	domain.SortSwapEvents(events)
	return events, nil
}

// Count returns the number of persisted lines for a pool.
func (s *EventLogStore) Count(_ context.Context, poolName string) (int, error) {
	files, err := dailyFiles(filepath.Join(s.dir, poolName))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range files {
		if err := scanJSONL(path, func([]byte) { count++ }); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Pools lists pool names that have persisted data.
func (s *EventLogStore) Pools() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var pools []string
	for _, entry := range entries {
		if entry.IsDir() {
			pools = append(pools, entry.Name())
		}
	}
	sort.Strings(pools)
	return pools, nil
}

func (r *swapRecord) toDomain() *domain.SwapEvent {
	return &domain.SwapEvent{
		Pool:         r.Pool,
		PoolName:     r.PoolName,
		Block:        r.Block,
		TxHash:       r.TxHash,
		LogIndex:     r.LogIndex,
		Timestamp:    r.Timestamp,
		Sender:       r.Sender,
		Recipient:    r.Recipient,
		Amount0:      parseBig(r.Amount0),
		Amount1:      parseBig(r.Amount1),
		SqrtPriceX96: parseBig(r.SqrtPriceX96),
		Liquidity:    parseBig(r.Liquidity),
		Tick:         r.Tick,
		Direction:    r.Direction,
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// appendJSONL appends one JSON record plus newline to path.
func appendJSONL(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// scanJSONL calls fn for every non-empty line of path.
func scanJSONL(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

// dailyFiles lists the .jsonl files of a pool directory in name (date) order.
func dailyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".jsonl" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
