package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uniswap-flow-lab/internal/agent"
	"uniswap-flow-lab/internal/features"
	"uniswap-flow-lab/internal/observability"
	"uniswap-flow-lab/internal/orderflow"
	filestore "uniswap-flow-lab/internal/storage/file"
)

// stateOutput is the JSON document printed to stdout.
type stateOutput struct {
	Pool       string        `json:"pool"`
	Timestamp  int64         `json:"timestamp"`
	Dim        int           `json:"dim"`
	Raw        []float64     `json:"raw"`
	Normalized []float64     `json:"normalized"`
	Action     *agent.Action `json:"action,omitempty"`
}

func main() {
	pool := flag.String("pool", "", "Pool name to build state for")
	hours := flag.Int("hours", 24, "Trailing window in hours")
	dataDir := flag.String("data-dir", "data/swaps", "Event log directory")
	snapshotDir := flag.String("snapshot-dir", "data/snapshots", "Snapshot log directory")
	normalizerPath := flag.String("normalizer", "data/normalizer.json", "Running-statistics state file")
	mode := flag.String("mode", "range", "Normalization mode: range or running")
	update := flag.Bool("update", false, "Fold this state into the running statistics and save them")
	predict := flag.Bool("predict", false, "Run the placeholder agent on the normalized state")

	flag.Parse()

	logger := log.New(os.Stderr, "[state] ", log.LstdFlags)

	if *pool == "" {
		logger.Fatal("--pool is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(*hours) * time.Hour)

	snaps, err := filestore.NewSnapshotStore(*snapshotDir).Load(ctx, *pool, cutoff)
	if err != nil {
		logger.Fatalf("Load snapshots: %v", err)
	}
	metrics, err := features.ComputeSnapshotMetrics(snaps)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientData) {
			logger.Fatalf("Need at least 2 snapshots in the last %dh, have %d", *hours, len(snaps))
		}
		logger.Fatalf("Snapshot metrics: %v", err)
	}

	events, err := filestore.NewEventLogStore(*dataDir).Load(ctx, *pool, cutoff)
	if err != nil {
		logger.Fatalf("Load events: %v", err)
	}
	flow := orderflow.ComputeVolumeMetrics(events, *hours, now)

	schema := features.DefaultSchema()
	builder, err := features.NewBuilder(schema)
	if err != nil {
		logger.Fatalf("Create builder: %v", err)
	}

	latest := snaps[len(snaps)-1]
	raw, err := builder.Build(features.BuildInput{
		Snapshot: latest,
		Metrics:  metrics,
		Flow:     flow,
	})
	if err != nil {
		logger.Fatalf("Build state: %v", err)
	}
	observability.RecordStateBuilt()

	normalizer, err := features.NewNormalizer(schema, 0)
	if err != nil {
		logger.Fatalf("Create normalizer: %v", err)
	}

	var normalized []float64
	switch *mode {
	case "range":
		normalized, err = normalizer.NormalizeByRange(raw)
		if err != nil {
			logger.Fatalf("Normalize: %v", err)
		}
	case "running":
		if _, statErr := os.Stat(*normalizerPath); statErr == nil {
			if err := normalizer.Load(*normalizerPath); err != nil {
				logger.Fatalf("Load normalizer state: %v", err)
			}
		}
		if *update {
			if err := normalizer.Update(raw); err != nil {
				logger.Fatalf("Update normalizer: %v", err)
			}
		}
		normalized, err = normalizer.NormalizeRunning(raw)
		if err != nil {
			logger.Fatalf("Normalize: %v", err)
		}
		if *update {
			if err := normalizer.Save(*normalizerPath); err != nil {
				logger.Fatalf("Save normalizer state: %v", err)
			}
			logger.Printf("Running statistics updated (count=%d)", normalizer.Count())
		}
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	out := stateOutput{
		Pool:       *pool,
		Timestamp:  latest.Timestamp,
		Dim:        schema.Dim(),
		Raw:        raw,
		Normalized: normalized,
	}

	if *predict {
		policy := &agent.Static{
			Action: agent.Action{RangeWidth: 0.1, CenterOffset: 0, LiquidityFraction: 0.5},
			Dim:    schema.Dim(),
		}
		action, err := policy.Predict(normalized)
		if err != nil {
			logger.Fatalf("Predict: %v", err)
		}
		out.Action = &action
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Encode output: %v", err)
	}
}
