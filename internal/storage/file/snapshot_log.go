package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// snapshotRecord is the persisted JSONL shape of a pool snapshot.
type snapshotRecord struct {
	Pool             string  `json:"pool"`
	PoolName         string  `json:"pool_name"`
	Block            uint64  `json:"block"`
	Timestamp        int64   `json:"timestamp"`
	Datetime         string  `json:"datetime"`
	SqrtPriceX96     string  `json:"sqrtPriceX96"`
	Tick             int     `json:"tick"`
	Liquidity        string  `json:"liquidity"`
	Price            float64 `json:"price"`
	FeeGrowthGlobal0 string  `json:"feeGrowthGlobal0X128"`
	FeeGrowthGlobal1 string  `json:"feeGrowthGlobal1X128"`
	TVLUSD           float64 `json:"tvl_usd"`
	Token0TVL        float64 `json:"token_a_tvl"`
	Token1TVL        float64 `json:"token_b_tvl"`
	FeesEarnedUSD    float64 `json:"fees_earned_usd"`
}

// SnapshotStore is a file-backed implementation of storage.SnapshotStore.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a snapshot store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Append persists one snapshot under (pool, snapshot's UTC day).
func (s *SnapshotStore) Append(_ context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolName == "" {
		return storage.ErrInvalidInput
	}

	poolDir := filepath.Join(s.dir, snap.PoolName)
	if err := os.MkdirAll(poolDir, 0o755); err != nil {
		return fmt.Errorf("create pool dir: %w", err)
	}

	rec := snapshotRecord{
		Pool:             snap.Pool,
		PoolName:         snap.PoolName,
		Block:            snap.Block,
		Timestamp:        snap.Timestamp,
		Datetime:         time.Unix(snap.Timestamp, 0).UTC().Format(time.RFC3339),
		SqrtPriceX96:     bigString(snap.SqrtPriceX96),
		Tick:             snap.Tick,
		Liquidity:        bigString(snap.Liquidity),
		Price:            snap.Price,
		FeeGrowthGlobal0: bigString(snap.FeeGrowthGlobal0),
		FeeGrowthGlobal1: bigString(snap.FeeGrowthGlobal1),
		TVLUSD:           snap.TVLUSD,
		Token0TVL:        snap.Token0TVL,
		Token1TVL:        snap.Token1TVL,
		FeesEarnedUSD:    snap.FeesEarnedUSD,
	}

	day := time.Unix(snap.Timestamp, 0).UTC().Format("2006-01-02")
	return appendJSONL(filepath.Join(poolDir, day+".jsonl"), rec)
}

// Load reads snapshots for a pool, filters by cutoff and sorts by timestamp.
func (s *SnapshotStore) Load(_ context.Context, poolName string, cutoff time.Time) ([]*domain.PoolSnapshot, error) {
	files, err := dailyFiles(filepath.Join(s.dir, poolName))
	if err != nil {
		return nil, err
	}

	var snaps []*domain.PoolSnapshot
	for _, path := range files {
		if err := scanJSONL(path, func(line []byte) {
			var rec snapshotRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return // skip malformed record
			}
			if !cutoff.IsZero() && rec.Timestamp <= cutoff.Unix() {
				return
			}
			snaps = append(snaps, &domain.PoolSnapshot{
				Pool:             rec.Pool,
				PoolName:         rec.PoolName,
				Block:            rec.Block,
				Timestamp:        rec.Timestamp,
				SqrtPriceX96:     parseBig(rec.SqrtPriceX96),
				Tick:             rec.Tick,
				Liquidity:        parseBig(rec.Liquidity),
				Price:            rec.Price,
				FeeGrowthGlobal0: parseBig(rec.FeeGrowthGlobal0),
				FeeGrowthGlobal1: parseBig(rec.FeeGrowthGlobal1),
				TVLUSD:           rec.TVLUSD,
				Token0TVL:        rec.Token0TVL,
				Token1TVL:        rec.Token1TVL,
				FeesEarnedUSD:    rec.FeesEarnedUSD,
			})
		}); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}
