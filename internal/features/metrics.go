package features

import (
	"fmt"
	"math"

	"uniswap-flow-lab/internal/domain"
)

// SnapshotMetrics summarizes a series of pool snapshots for the state builder.
type SnapshotMetrics struct {
	Volatility    float64
	PriceTrend    float64
	AvgPrice      float64
	TickMin       int
	TickMax       int
	SnapshotCount int
}

// ComputeSnapshotMetrics derives volatility, trend and tick extremes from a
// chronologically ordered snapshot series. At least two snapshots are needed
// for log-returns; with fewer, ErrInsufficientData is returned.
func ComputeSnapshotMetrics(snaps []*domain.PoolSnapshot) (SnapshotMetrics, error) {
	if len(snaps) < 2 {
		return SnapshotMetrics{}, fmt.Errorf("compute snapshot metrics: %w: have %d snapshots, need 2", ErrInsufficientData, len(snaps))
	}

	const eps = 1e-10

	prices := make([]float64, len(snaps))
	for i, s := range snaps {
		prices[i] = s.Price
	}

	// Volatility is the standard deviation of successive log-returns.
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, math.Log(prices[i]+eps)-math.Log(prices[i-1]+eps))
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	volatility := math.Sqrt(sq / float64(len(returns)))

	trend := (prices[len(prices)-1] - prices[0]) / (prices[0] + eps)

	var sum float64
	for _, p := range prices {
		sum += p
	}

	tickMin, tickMax := snaps[0].Tick, snaps[0].Tick
	for _, s := range snaps[1:] {
		if s.Tick < tickMin {
			tickMin = s.Tick
		}
		if s.Tick > tickMax {
			tickMax = s.Tick
		}
	}

	return SnapshotMetrics{
		Volatility:    volatility,
		PriceTrend:    trend,
		AvgPrice:      sum / float64(len(prices)),
		TickMin:       tickMin,
		TickMax:       tickMax,
		SnapshotCount: len(snaps),
	}, nil
}
