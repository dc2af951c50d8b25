// Package orderflow analyzes persisted swap events: per-wallet aggregation,
// whale identification, flow metrics and accumulation/distribution patterns.
package orderflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"uniswap-flow-lab/internal/domain"
	"uniswap-flow-lab/internal/storage"
)

// ErrNoData is returned when the analysis window contains no events.
// Callers must check for it before reading report fields.
var ErrNoData = errors.New("no swap data available")

// Default analysis parameters.
const (
	DefaultWhalePercent = 10.0 // top % of wallets by volume counted as whales
	DefaultWindowHours  = 24   // accumulation/distribution bucket size
	topWhalesInReport   = 5
)

// Analyzer produces order-flow reports from the event log.
type Analyzer struct {
	events       storage.EventLogStore
	whalePercent float64
	windowHours  int
	logger       *log.Logger
	now          func() time.Time
}

// AnalyzerOptions contains configuration for creating an Analyzer.
type AnalyzerOptions struct {
	Events       storage.EventLogStore
	WhalePercent float64       // default DefaultWhalePercent
	WindowHours  int           // default DefaultWindowHours
	Logger       *log.Logger   // default log.Default()
	Now          func() time.Time // default time.Now; injectable for tests
}

// NewAnalyzer creates a new order-flow analyzer.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	whalePercent := opts.WhalePercent
	if whalePercent == 0 {
		whalePercent = DefaultWhalePercent
	}

	windowHours := opts.WindowHours
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Analyzer{
		events:       opts.Events,
		whalePercent: whalePercent,
		windowHours:  windowHours,
		logger:       logger,
		now:          now,
	}
}

// Analyze loads the trailing windowDays of events for a pool and assembles a
// full flow report. Returns ErrNoData when the window is empty.
func (a *Analyzer) Analyze(ctx context.Context, poolName string, windowDays int) (*domain.FlowReport, error) {
	cutoff := a.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)

	events, err := a.events.Load(ctx, poolName, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", poolName, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("pool %s: %w", poolName, ErrNoData)
	}

	wallets := AggregateWallets(events)
	whales := IdentifyWhales(wallets, a.whalePercent)
	metrics := ComputeFlowMetrics(events)
	patterns := DetectPatterns(events, a.windowHours)

	report := &domain.FlowReport{
		Pool:          poolName,
		PeriodDays:    windowDays,
		TotalSwaps:    len(events),
		UniqueWallets: len(wallets.ByAddress),
		Metrics:       metrics,
		Whales:        whales,
		Patterns:      patterns,
		Prediction:    buildPrediction(metrics, whales),
	}
	if len(report.Whales) > topWhalesInReport {
		report.Whales = report.Whales[:topWhalesInReport]
	}

	a.logger.Printf("Analyzed %s: %d swaps, %d wallets, OFI=%.3f, %s",
		poolName, report.TotalSwaps, report.UniqueWallets,
		metrics.Imbalance, metrics.MarketDirection)

	return report, nil
}

// buildPrediction derives the qualitative directional call.
func buildPrediction(m domain.FlowMetrics, whales []*domain.Whale) domain.Prediction {
	confidence := domain.ConfidenceLow
	switch {
	case math.Abs(m.Imbalance) > 0.3:
		confidence = domain.ConfidenceHigh
	case math.Abs(m.Imbalance) > 0.15:
		confidence = domain.ConfidenceMedium
	}

	whaleBehavior := domain.BehaviorUnknown
	if len(whales) > 0 {
		whaleBehavior = whales[0].Behavior
	}

	return domain.Prediction{
		Direction:     m.MarketDirection,
		Confidence:    confidence,
		Signal:        m.TrendSignal,
		WhaleBehavior: whaleBehavior,
	}
}
