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

	"uniswap-flow-lab/internal/observability"
	"uniswap-flow-lab/internal/orderflow"
	"uniswap-flow-lab/internal/storage"
	chstore "uniswap-flow-lab/internal/storage/clickhouse"
	filestore "uniswap-flow-lab/internal/storage/file"
	pgstore "uniswap-flow-lab/internal/storage/postgres"
)

func main() {
	pool := flag.String("pool", "", "Pool name to analyze")
	days := flag.Int("days", 7, "Analysis window in days")
	whalePct := flag.Float64("whale-pct", orderflow.DefaultWhalePercent, "Top percent of wallets counted as whales")
	windowHours := flag.Int("window-hours", orderflow.DefaultWindowHours, "Pattern bucket size in hours")
	dataDir := flag.String("data-dir", "data/swaps", "Event log directory (file backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides file backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN; persists hourly flow buckets when set")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	if *pool == "" {
		logger.Fatal("--pool is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var events storage.EventLogStore
	if *postgresDSN != "" {
		db, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect postgres: %v", err)
		}
		defer db.Close()
		events = pgstore.NewEventLogStore(db)
	} else {
		events = filestore.NewEventLogStore(*dataDir)
	}

	analyzer := orderflow.NewAnalyzer(orderflow.AnalyzerOptions{
		Events:       events,
		WhalePercent: *whalePct,
		WindowHours:  *windowHours,
		Logger:       logger,
	})

	report, err := analyzer.Analyze(ctx, *pool, *days)
	if err != nil {
		if errors.Is(err, orderflow.ErrNoData) {
			logger.Fatalf("No swap data for %s in the last %d days", *pool, *days)
		}
		logger.Fatalf("Analyze: %v", err)
	}
	observability.RecordReportGenerated()

	if *clickhouseDSN != "" {
		if err := persistBuckets(ctx, *clickhouseDSN, *pool, *days, events); err != nil {
			logger.Printf("Persist flow buckets: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Fatalf("Encode report: %v", err)
	}
}

// persistBuckets re-aggregates the analysis window into hourly buckets and
// writes them to the ClickHouse timeseries.
func persistBuckets(ctx context.Context, dsn, poolName string, days int, events storage.EventLogStore) error {
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	loaded, err := events.Load(ctx, poolName, cutoff)
	if err != nil {
		return err
	}
	buckets := orderflow.HourlyBuckets(poolName, loaded)
	if len(buckets) == 0 {
		return nil
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	return chstore.NewFlowBucketStore(conn).InsertBulk(ctx, buckets)
}
