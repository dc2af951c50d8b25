package domain

// Whale behavior labels, derived from a wallet's net token0 position.
const (
	BehaviorAccumulating = "ACCUMULATING"
	BehaviorDistributing = "DISTRIBUTING"
	BehaviorNeutral      = "NEUTRAL"
	BehaviorUnknown      = "UNKNOWN"
)

// Market direction labels, derived from order-flow imbalance.
const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
	DirectionNeutral = "NEUTRAL"
)

// Trend signal labels, derived from the hourly net-flow trend change.
const (
	TrendAccelerating = "ACCELERATING"
	TrendDecelerating = "DECELERATING"
	TrendStable       = "STABLE"
)

// Window pattern labels, in classification precedence order.
const (
	PatternAccumulation  = "ACCUMULATION"
	PatternDistribution  = "DISTRIBUTION"
	PatternRetailBuying  = "RETAIL_BUYING"
	PatternRetailSelling = "RETAIL_SELLING"
	PatternMixed         = "MIXED"
	PatternUnknown       = "UNKNOWN"
)

// Confidence labels for the report prediction.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// WalletTx is one swap attributed to a wallet, kept for drill-down in reports.
type WalletTx struct {
	Timestamp int64   `json:"timestamp"`
	Direction string  `json:"direction"`
	Amount0   float64 `json:"amount0"`
	Amount1   float64 `json:"amount1"`
	Tick      int     `json:"tick"`
}

// WalletActivity aggregates one wallet's behavior over an analysis window.
// Recomputed per analysis call; never persisted.
type WalletActivity struct {
	Address          string     `json:"address"`
	BuyCount         int        `json:"buy_count"`
	SellCount        int        `json:"sell_count"`
	BuyVolumeToken0  float64    `json:"buy_volume_token0"`
	SellVolumeToken0 float64    `json:"sell_volume_token0"`
	BuyVolumeToken1  float64    `json:"buy_volume_token1"`
	SellVolumeToken1 float64    `json:"sell_volume_token1"`
	NetToken0        float64    `json:"net_token0"`
	NetToken1        float64    `json:"net_token1"`
	FirstSeen        int64      `json:"first_seen"`
	LastSeen         int64      `json:"last_seen"`
	Txs              []WalletTx `json:"txs"`
}

// TotalVolumeToken0 is the wallet's combined buy+sell token0 volume,
// the ranking key for whale identification.
func (w *WalletActivity) TotalVolumeToken0() float64 {
	return w.BuyVolumeToken0 + w.SellVolumeToken0
}

// Whale is a wallet in the top percentile by traded volume in a window.
type Whale struct {
	Address     string  `json:"address"`
	TotalVolume float64 `json:"total_volume"`
	NetToken0   float64 `json:"net_token0"`
	NetToken1   float64 `json:"net_token1"`
	BuyCount    int     `json:"buy_count"`
	SellCount   int     `json:"sell_count"`
	Behavior    string  `json:"behavior"`
	FirstSeen   int64   `json:"first_seen"`
	LastSeen    int64   `json:"last_seen"`
}

// FlowMetrics are aggregate order-flow metrics over an analysis window.
type FlowMetrics struct {
	TotalBuyVolume  float64 `json:"total_buy_volume"`
	TotalSellVolume float64 `json:"total_sell_volume"`
	NetFlow         float64 `json:"net_flow"`
	BuyCount        int     `json:"buy_count"`
	SellCount       int     `json:"sell_count"`
	BuySellRatio    float64 `json:"buy_sell_ratio"`
	Imbalance       float64 `json:"order_flow_imbalance"`
	TrendChange     float64 `json:"trend_change"`
	MarketDirection string  `json:"market_direction"`
	TrendSignal     string  `json:"trend_signal"`
}

// WindowPattern classifies one fixed-size time bucket of events.
type WindowPattern struct {
	Window     string  `json:"window"`
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
	BuyCount   int     `json:"buy_count"`
	SellCount  int     `json:"sell_count"`
	Pattern    string  `json:"pattern"`
}

// PatternSummary aggregates per-window classifications.
type PatternSummary struct {
	Windows         []WindowPattern `json:"windows"`
	PatternCounts   map[string]int  `json:"pattern_summary"`
	DominantPattern string          `json:"dominant_pattern"`
}

// Prediction is the qualitative directional call assembled into a report.
type Prediction struct {
	Direction     string `json:"direction"`
	Confidence    string `json:"confidence"`
	Signal        string `json:"signal"`
	WhaleBehavior string `json:"whale_behavior"`
}

// FlowReport is the full order-flow analysis output for one pool window.
type FlowReport struct {
	Pool          string          `json:"pool"`
	PeriodDays    int             `json:"period_days"`
	TotalSwaps    int             `json:"total_swaps"`
	UniqueWallets int             `json:"unique_wallets"`
	Metrics       FlowMetrics     `json:"metrics"`
	Whales        []*Whale        `json:"whales"`
	Patterns      *PatternSummary `json:"patterns"`
	Prediction    Prediction      `json:"prediction"`
}

// FlowBucket is one UTC hour of aggregated flow for a pool, persisted as a
// timeseries so long-horizon trend queries do not replay raw events.
type FlowBucket struct {
	PoolName   string  `json:"pool_name"`
	HourStart  int64   `json:"hour_start"` // Unix seconds, truncated to the hour
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
	BuyCount   int     `json:"buy_count"`
	SellCount  int     `json:"sell_count"`
}

// VolumeMetrics are trailing-hours swap totals consumed by the feature builder.
type VolumeMetrics struct {
	VolumeToken0  float64 `json:"volume_token0"`
	VolumeToken1  float64 `json:"volume_token1"`
	SwapCount     int     `json:"swap_count"`
	BuyVolume     float64 `json:"buy_volume"`
	SellVolume    float64 `json:"sell_volume"`
	Imbalance     float64 `json:"order_flow_imbalance"`
	WhaleNetFlow  float64 `json:"whale_net_flow"`
	UniqueWallets int     `json:"unique_wallets"`
}
