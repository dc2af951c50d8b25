package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// EventLogStore implements storage.EventLogStore using PostgreSQL.
// Signed 256-bit amounts are stored as NUMERIC(78,0) and carried as
// decimal strings across the driver boundary.
type EventLogStore struct {
	pool *Pool
}

// NewEventLogStore creates a new EventLogStore.
func NewEventLogStore(pool *Pool) *EventLogStore {
	return &EventLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventLogStore = (*EventLogStore)(nil)

// Append adds one swap event. Returns ErrDuplicateKey if
// (pool, tx_hash, log_index) exists.
func (s *EventLogStore) Append(ctx context.Context, e *domain.SwapEvent) error {
	if e == nil || e.PoolName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO swap_events (
			pool, pool_name, block, tx_hash, log_index, timestamp,
			sender, recipient, amount0, amount1, sqrt_price_x96, liquidity, tick, direction
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Pool,
		e.PoolName,
		e.Block,
		e.TxHash,
		e.LogIndex,
		e.Timestamp,
		e.Sender,
		e.Recipient,
		numeric(e.Amount0),
		numeric(e.Amount1),
		numeric(e.SqrtPriceX96),
		numeric(e.Liquidity),
		e.Tick,
		e.Direction,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap event: %w", err)
	}
	return nil
}

// Load retrieves events for a pool after cutoff, ordered by timestamp ASC.
func (s *EventLogStore) Load(ctx context.Context, poolName string, cutoff time.Time) ([]*domain.SwapEvent, error) {
	query := `
		SELECT pool, pool_name, block, tx_hash, log_index, timestamp,
		       sender, recipient, amount0::text, amount1::text,
		       sqrt_price_x96::text, liquidity::text, tick, direction
		FROM swap_events
		WHERE pool_name = $1 AND timestamp > $2
		ORDER BY timestamp ASC, block ASC, log_index ASC
	`

	var since int64
	if !cutoff.IsZero() {
		since = cutoff.Unix()
	}

	rows, err := s.pool.Query(ctx, query, poolName, since)
	if err != nil {
		return nil, fmt.Errorf("load swap events: %w", err)
	}
	defer rows.Close()

	return scanSwapEvents(rows)
}

// Count returns the number of stored events for a pool.
func (s *EventLogStore) Count(ctx context.Context, poolName string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM swap_events WHERE pool_name = $1`, poolName,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count swap events: %w", err)
	}
	return count, nil
}

// scanSwapEvents scans rows into SwapEvent structs.
func scanSwapEvents(rows pgx.Rows) ([]*domain.SwapEvent, error) {
	var events []*domain.SwapEvent
	for rows.Next() {
		var (
			e                                  domain.SwapEvent
			amount0, amount1, sqrtPrice, liqui string
		)
		err := rows.Scan(
			&e.Pool, &e.PoolName, &e.Block, &e.TxHash, &e.LogIndex, &e.Timestamp,
			&e.Sender, &e.Recipient, &amount0, &amount1, &sqrtPrice, &liqui,
			&e.Tick, &e.Direction,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap event: %w", err)
		}
		e.Amount0 = mustBig(amount0)
		e.Amount1 = mustBig(amount1)
		e.SqrtPriceX96 = mustBig(sqrtPrice)
		e.Liquidity = mustBig(liqui)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap events: %w", err)
	}
	return events, nil
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
