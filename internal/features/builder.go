package features

import (
	"fmt"
	"math/big"

	"uniswap-flow-lab/internal/domain"
)

// PositionState describes one live liquidity position. Optional builder
// input; when absent the position block is zero-filled.
type PositionState struct {
	TickLower       int
	TickUpper       int
	Liquidity       float64
	Amount0         float64
	Amount1         float64
	ValueUSD        float64
	ImpermanentLoss float64
	FeesEarnedUSD   float64
	InRange         bool
}

// PortfolioState describes account-level holdings. Optional builder input;
// when absent the portfolio block falls back to pool TVL figures.
type PortfolioState struct {
	ValueUSD      float64
	BalanceToken0 float64
	BalanceToken1 float64
	TotalFeesUSD  float64
	TotalILUSD    float64
	Sharpe        float64
	MaxDrawdown   float64
}

// BuildInput bundles everything the builder reads for one state vector.
// Snapshot, Metrics and Flow are required; Position and Portfolio may be nil.
type BuildInput struct {
	Snapshot  *domain.PoolSnapshot
	Metrics   SnapshotMetrics
	Flow      domain.VolumeMetrics
	Position  *PositionState
	Portfolio *PortfolioState
}

// Builder assembles state vectors against a fixed schema.
type Builder struct {
	schema *Schema
}

// NewBuilder validates the schema and returns a builder bound to it.
func NewBuilder(schema *Schema) (*Builder, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("new builder: %w", err)
	}
	return &Builder{schema: schema}, nil
}

// Schema returns the schema the builder writes against.
func (b *Builder) Schema() *Schema {
	return b.schema
}

// Build assembles the raw (pre-normalization) state vector.
func (b *Builder) Build(in BuildInput) ([]float64, error) {
	if in.Snapshot == nil {
		return nil, fmt.Errorf("build state: nil snapshot")
	}
	snap := in.Snapshot

	state := make([]float64, 0, b.schema.Dim())

	// Pool block.
	state = append(state,
		snap.Price,
		bigToFloat(snap.Liquidity)/1e18,
		bigToFloat(snap.SqrtPriceX96)/1e24,
		0, // fee growth reserved
		in.Flow.VolumeToken0/1e18,
		in.Flow.VolumeToken1/1e18,
		in.Metrics.Volatility,
		in.Metrics.PriceTrend,
		float64(snap.Tick)/10000,
		float64(in.Metrics.TickMin)/10000,
		float64(in.Metrics.TickMax)/10000,
	)

	// Market block.
	state = append(state,
		in.Metrics.Volatility,   // short-horizon volatility
		in.Metrics.Volatility*2, // long-horizon proxy
		in.Flow.Imbalance,
		in.Metrics.PriceTrend,
		float64(in.Flow.UniqueWallets)/50,
		float64(in.Flow.SwapCount)/100,
		in.Flow.BuyVolume/(in.Flow.SellVolume+1e-10),
		in.Flow.WhaleNetFlow/1e18,
	)

	// Position block.
	if pos := in.Position; pos != nil {
		inRange := 0.0
		if pos.InRange {
			inRange = 1.0
		}
		state = append(state,
			float64(pos.TickLower)/10000,
			float64(pos.TickUpper)/10000,
			pos.Liquidity/1e18,
			pos.Amount0,
			pos.Amount1,
			pos.ValueUSD,
			pos.ImpermanentLoss,
			pos.FeesEarnedUSD,
			inRange,
		)
	} else {
		state = append(state, make([]float64, PositionBlockSize)...)
	}

	// Portfolio block.
	if pf := in.Portfolio; pf != nil {
		state = append(state,
			pf.ValueUSD/1e6,
			pf.BalanceToken0,
			pf.BalanceToken1,
			pf.TotalFeesUSD,
			pf.TotalILUSD,
			pf.Sharpe,
			pf.MaxDrawdown,
		)
	} else {
		state = append(state,
			snap.TVLUSD/1e6,
			snap.Token0TVL,
			snap.Token1TVL,
			snap.FeesEarnedUSD,
			0, // total IL
			0, // sharpe
			0, // max drawdown
		)
	}

	if len(state) != b.schema.Dim() {
		return nil, fmt.Errorf("build state: assembled %d features, schema wants %d", len(state), b.schema.Dim())
	}
	return state, nil
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
