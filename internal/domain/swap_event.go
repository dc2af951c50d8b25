package domain

import (
	"math/big"
	"sort"
)

// Swap direction constants. Direction is derived from the sign of Amount0:
// a negative amount0 means the recipient received token0, i.e. bought it.
const (
	DirectionBuyToken0  = "buy_token0"
	DirectionSellToken0 = "sell_token0"
)

// SwapEvent represents one decoded V3 Swap log.
// Identity key is (Pool, TxHash, LogIndex); events are immutable once written.
type SwapEvent struct {
	Pool         string   // pool contract address (lowercase hex)
	PoolName     string   // configured pool alias
	Block        uint64   // block number the event was emitted in
	TxHash       string   // transaction hash (hex)
	LogIndex     uint     // log index within the block
	Timestamp    int64    // block timestamp, Unix seconds
	Sender       string   // swap initiator (usually a router contract)
	Recipient    string   // effective counterparty of the swap
	Amount0      *big.Int // signed token0 delta in base units
	Amount1      *big.Int // signed token1 delta in base units
	SqrtPriceX96 *big.Int // Q64.96 sqrt price after the swap
	Liquidity    *big.Int // in-range pool liquidity at event time
	Tick         int      // pool tick after the swap
	Direction    string   // DirectionBuyToken0 | DirectionSellToken0
}

// DeriveDirection returns the direction implied by a signed amount0.
func DeriveDirection(amount0 *big.Int) string {
	if amount0 != nil && amount0.Sign() < 0 {
		return DirectionBuyToken0
	}
	return DirectionSellToken0
}

// IsBuy reports whether the event is a buy of token0.
func (e *SwapEvent) IsBuy() bool {
	return e.Amount0 != nil && e.Amount0.Sign() < 0
}

// SortSwapEvents sorts events by (Timestamp, Block, LogIndex) ascending.
// On-disk order is append order, not time order, so callers re-sort after load.
func SortSwapEvents(events []*SwapEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		if events[i].Block != events[j].Block {
			return events[i].Block < events[j].Block
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}
