package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uniswap-flow-lab/internal/config"
	"uniswap-flow-lab/internal/evm"
	"uniswap-flow-lab/internal/ingest"
	"uniswap-flow-lab/internal/observability"
	"uniswap-flow-lab/internal/storage"
	filestore "uniswap-flow-lab/internal/storage/file"
	"uniswap-flow-lab/internal/storage/memory"
	pgstore "uniswap-flow-lab/internal/storage/postgres"
)

func main() {
	mode := flag.String("mode", "once", "Collection mode: once or daemon")
	configPath := flag.String("config", "config/pools.json", "Pool registry path")
	rpcEndpoint := flag.String("rpc-endpoint", "", "EVM JSON-RPC endpoint")
	dataDir := flag.String("data-dir", "data/swaps", "Event log directory (file backend)")
	checkpointPath := flag.String("checkpoint", "data/checkpoints.json", "Checkpoint file path (file backend)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides file backend)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (throwaway runs)")
	pool := flag.String("pool", "", "Sync a single pool instead of all enabled pools")
	lookback := flag.Uint64("lookback", ingest.DefaultLookbackBlocks, "Initial lookback blocks for unsynced pools")
	batchSize := flag.Uint64("batch-size", ingest.DefaultBatchSize, "Blocks per log query")
	batchDelay := flag.Duration("batch-delay", ingest.DefaultBatchDelay, "Pause between log queries (0 disables)")
	interval := flag.Duration("interval", ingest.DefaultInterval, "Daemon collection interval")
	snapshotDir := flag.String("snapshot-dir", "", "Also record pool snapshots under this directory")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	if *metricsAddr != "" && *mode == "daemon" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	events, checkpoints, cleanup, err := openStores(ctx, *postgresDSN, *useMemory, *dataDir, *checkpointPath, logger)
	if err != nil {
		logger.Fatalf("Open stores: %v", err)
	}
	defer cleanup()

	client, err := evm.Dial(ctx, *rpcEndpoint)
	if err != nil {
		logger.Fatalf("Dial RPC: %v", err)
	}
	defer client.Close()

	collector, err := ingest.NewCollector(ingest.CollectorOptions{
		Ledger:         client,
		Events:         events,
		Checkpoints:    checkpoints,
		Config:         cfg,
		BatchSize:      *batchSize,
		LookbackBlocks: *lookback,
		BatchDelay:     *batchDelay,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("Create collector: %v", err)
	}

	var snapshotter *ingest.Snapshotter
	if *snapshotDir != "" {
		snapshotter, err = ingest.NewSnapshotter(client, filestore.NewSnapshotStore(*snapshotDir), cfg, logger)
		if err != nil {
			logger.Fatalf("Create snapshotter: %v", err)
		}
	}

	switch *mode {
	case "once":
		if *pool != "" {
			count, err := collector.SyncPool(ctx, *pool)
			if err != nil {
				logger.Fatalf("Sync %s: %v", *pool, err)
			}
			logger.Printf("Synced %s: %d new events", *pool, count)
		} else {
			total, err := collector.SyncAll(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Fatalf("Sync all: %v", err)
			}
			logger.Printf("Synced all pools: %d new events", total)
		}
		if snapshotter != nil {
			if err := snapshotter.SnapshotAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Fatalf("Snapshot all: %v", err)
			}
		}
	case "daemon":
		scheduler := ingest.NewScheduler(collector, *interval, logger)
		if snapshotter != nil {
			scheduler = scheduler.WithSnapshotter(snapshotter)
		}
		err = scheduler.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("Daemon: %v", err)
		}
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// openStores selects the storage backend: postgres when a DSN is given,
// in-memory when requested, files otherwise.
func openStores(ctx context.Context, postgresDSN string, useMemory bool, dataDir, checkpointPath string, logger *log.Logger) (storage.EventLogStore, storage.CheckpointStore, func(), error) {
	switch {
	case postgresDSN != "":
		db, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Println("Using PostgreSQL storage")
		return pgstore.NewEventLogStore(db), pgstore.NewCheckpointStore(db), db.Close, nil
	case useMemory:
		logger.Println("Using in-memory storage")
		return memory.NewEventLogStore(), memory.NewCheckpointStore(), func() {}, nil
	default:
		logger.Printf("Using file storage under %s", dataDir)
		return filestore.NewEventLogStore(dataDir), filestore.NewCheckpointStore(checkpointPath), func() {}, nil
	}
}
