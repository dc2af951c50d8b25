package domain

import "math/big"

// PoolSnapshot is a point-in-time reading of pool state, collected on a fixed
// cadence and replayed by the feature builder.
type PoolSnapshot struct {
	Pool         string   // pool contract address
	PoolName     string   // configured pool alias
	Block        uint64   // block the snapshot was taken at
	Timestamp    int64    // block timestamp, Unix seconds
	SqrtPriceX96 *big.Int // current Q64.96 sqrt price
	Tick         int      // current pool tick
	Liquidity    *big.Int // in-range liquidity
	Price        float64  // token1 per token0, derived from sqrt price

	// Fee accumulators and TVL, populated when the collector can read them.
	FeeGrowthGlobal0 *big.Int
	FeeGrowthGlobal1 *big.Int
	TVLUSD           float64
	Token0TVL        float64
	Token1TVL        float64
	FeesEarnedUSD    float64
}

// PriceFromSqrtX96 converts a Q64.96 sqrt price to a plain token1/token0 price.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int) float64 {
	if sqrtPriceX96 == nil {
		return 0
	}
	q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	sqrt := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX96), q96)
	price, _ := new(big.Float).Mul(sqrt, sqrt).Float64()
	return price
}
