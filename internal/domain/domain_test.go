package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDirection(t *testing.T) {
	assert.Equal(t, DirectionBuyToken0, DeriveDirection(big.NewInt(-1)))
	assert.Equal(t, DirectionSellToken0, DeriveDirection(big.NewInt(1)))
	assert.Equal(t, DirectionSellToken0, DeriveDirection(big.NewInt(0)))
	assert.Equal(t, DirectionSellToken0, DeriveDirection(nil))
}

func TestSortSwapEvents(t *testing.T) {
	events := []*SwapEvent{
		{Timestamp: 200, Block: 20, LogIndex: 0},
		{Timestamp: 100, Block: 10, LogIndex: 5},
		{Timestamp: 100, Block: 10, LogIndex: 2},
		{Timestamp: 100, Block: 9, LogIndex: 7},
	}

	SortSwapEvents(events)

	assert.Equal(t, uint64(9), events[0].Block)
	assert.Equal(t, uint(2), events[1].LogIndex)
	assert.Equal(t, uint(5), events[2].LogIndex)
	assert.Equal(t, int64(200), events[3].Timestamp)
}

func TestPriceFromSqrtX96(t *testing.T) {
	// sqrtPriceX96 == 2^96 encodes a price of exactly 1.
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	assert.InDelta(t, 1.0, PriceFromSqrtX96(q96), 1e-12)

	// Doubling the sqrt price quadruples the price.
	assert.InDelta(t, 4.0, PriceFromSqrtX96(new(big.Int).Mul(q96, big.NewInt(2))), 1e-12)

	assert.Zero(t, PriceFromSqrtX96(nil))
}
