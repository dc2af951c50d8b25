// Package features builds the fixed-dimension state vector consumed by the
// decision agent, and normalizes it by fixed ranges or running statistics.
package features

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a computation needs more observations
// than the input provides. Callers must check for it before reading values.
var ErrInsufficientData = errors.New("insufficient data")

// Block sizes of the state vector. The four blocks are laid out in order:
// pool, market, position, portfolio.
const (
	PoolBlockSize      = 11
	MarketBlockSize    = 8
	PositionBlockSize  = 9
	PortfolioBlockSize = 7

	StateDim = PoolBlockSize + MarketBlockSize + PositionBlockSize + PortfolioBlockSize
)

// Slot is one named feature with its expected value range.
// The range drives range normalization: Low maps to -1, High maps to +1.
type Slot struct {
	Name string
	Low  float64
	High float64
}

// Schema is the ordered feature layout shared by the builder and the
// normalizer. Declared once and validated at construction.
type Schema struct {
	slots []Slot
}

// DefaultSchema returns the 35-slot reference schema.
func DefaultSchema() *Schema {
	s := &Schema{slots: []Slot{
		// Pool block
		{"price", 0.0001, 1000},
		{"liquidity", 1e3, 1e12},
		{"sqrt_price", 0, 1e20},
		{"fee_growth", 0, 1e20}, // reserved, builder writes 0
		{"volume_token0", 0, 1e9},
		{"volume_token1", 0, 1e7},
		{"volatility", 0, 1},
		{"price_trend", -1, 1},
		{"tick", -900000, 900000},
		{"tick_min", -900000, 900000},
		{"tick_max", -900000, 900000},

		// Market block
		{"vol_short", 0, 0.5},
		{"vol_long", 0, 1},
		{"flow_imbalance", 0, 2},
		{"market_trend", -1, 1},
		{"unique_wallets", 0, 10},
		{"activity", 0, 100},
		{"buy_sell_ratio", -1, 1},
		{"whale_net_flow", -1, 1},

		// Position block
		{"pos_tick_lower", -900000, 900000},
		{"pos_tick_upper", -900000, 900000},
		{"pos_liquidity", 0, 1e12},
		{"pos_amount0", 0, 1e9},
		{"pos_amount1", 0, 1e9},
		{"pos_value", 0, 1e9},
		{"impermanent_loss", -1, 1},
		{"fees_earned", 0, 1e6},
		{"in_range", 0, 1},

		// Portfolio block
		{"portfolio_value", 0, 1e9},
		{"balance_token0", 0, 1e9},
		{"balance_token1", 0, 1e9},
		{"total_fees", 0, 1e6},
		{"total_il", -1e6, 1e6},
		{"sharpe", -5, 5},
		{"max_drawdown", 0, 1},
	}}

	if err := s.Validate(); err != nil {
		// The reference schema is a compile-time constant; a failure here is
		// a programming error, not a runtime condition.
		panic(err)
	}
	return s
}

// Dim returns the number of slots.
func (s *Schema) Dim() int {
	return len(s.slots)
}

// Slots returns the ordered slot definitions.
func (s *Schema) Slots() []Slot {
	return s.slots
}

// Validate checks dimensionality, name uniqueness and range sanity.
func (s *Schema) Validate() error {
	if len(s.slots) != StateDim {
		return fmt.Errorf("schema has %d slots, want %d", len(s.slots), StateDim)
	}

	names := make(map[string]bool, len(s.slots))
	for i, slot := range s.slots {
		if slot.Name == "" {
			return fmt.Errorf("slot %d: empty name", i)
		}
		if names[slot.Name] {
			return fmt.Errorf("slot %d: duplicate name %q", i, slot.Name)
		}
		names[slot.Name] = true

		if slot.Low > slot.High {
			return fmt.Errorf("slot %d (%s): low %g > high %g", i, slot.Name, slot.Low, slot.High)
		}
	}
	return nil
}
