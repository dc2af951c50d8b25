package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"

	"uniswap-flow-lab/internal/config"
	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/evm"
	"uniswap-flow-lab/internal/storage"
)

// PoolStateReader is the chain capability the snapshotter needs.
type PoolStateReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTime(ctx context.Context, number uint64) (int64, error)
	PoolState(ctx context.Context, address common.Address, block uint64) (evm.PoolState, error)
}

// Snapshotter records point-in-time pool state for the feature builder.
type Snapshotter struct {
	ledger PoolStateReader
	store  storage.SnapshotStore
	cfg    *config.Config
	logger *log.Logger
}

// NewSnapshotter builds a snapshotter. All arguments are required except the
// logger.
func NewSnapshotter(ledger PoolStateReader, store storage.SnapshotStore, cfg *config.Config, logger *log.Logger) (*Snapshotter, error) {
	if ledger == nil || store == nil || cfg == nil {
		return nil, fmt.Errorf("new snapshotter: nil dependency")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Snapshotter{ledger: ledger, store: store, cfg: cfg, logger: logger}, nil
}

// SnapshotPool reads the current pool state and appends one snapshot.
func (s *Snapshotter) SnapshotPool(ctx context.Context, poolName string) error {
	pool, err := s.cfg.Pool(poolName)
	if err != nil {
		return err
	}

	head, err := s.ledger.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", poolName, err)
	}
	ts, err := s.ledger.BlockTime(ctx, head)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", poolName, err)
	}

	address := common.HexToAddress(pool.Address)
	state, err := s.ledger.PoolState(ctx, address, head)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", poolName, err)
	}

	snap := &domain.PoolSnapshot{
		Pool:         pool.Address,
		PoolName:     poolName,
		Block:        head,
		Timestamp:    ts,
		SqrtPriceX96: state.SqrtPriceX96,
		Tick:         state.Tick,
		Liquidity:    state.Liquidity,
		Price:        domain.PriceFromSqrtX96(state.SqrtPriceX96),
	}
	if err := s.store.Append(ctx, snap); err != nil {
		return fmt.Errorf("snapshot %s: %w", poolName, err)
	}
	return nil
}

// SnapshotAll snapshots every enabled pool; per-pool failures are logged and
// do not stop the run.
func (s *Snapshotter) SnapshotAll(ctx context.Context) error {
	for _, name := range s.cfg.EnabledPools() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SnapshotPool(ctx, name); err != nil {
			s.logger.Printf("snapshot %s: %v", name, err)
		}
	}
	return nil
}
