package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"telemetry-collector/internal/adapters/csvfile"
	"telemetry-collector/internal/adapters/postgres"
	"telemetry-collector/internal/adapters/telemetryfeed"
	"telemetry-collector/internal/config"
	"telemetry-collector/internal/core"
	"telemetry-collector/internal/logger"
	"telemetry-collector/internal/pkg/clock"
	"telemetry-collector/internal/storage/sqlite"
)

func main() {
	flags := pflag.NewFlagSet("collector", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	loop := flags.Bool("loop", false, "keep running, one cycle every COLLECT_INTERVAL")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	appLog := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(ctx, cfg, *loop, appLog)
	stop()

	if err != nil {
		appLog.Error("collector failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, loop bool, log logger.Logger) error {
	sinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	feed := telemetryfeed.NewClient(cfg.FeedURL, cfg.Warmup, log)
	cycle := core.NewCycle(feed, cfg.ChainGenesis, sinks, clock.Real(), log)

	if loop {
		log.Info("collector: loop mode", "interval", cfg.CollectInterval)
		core.NewScheduler(cfg.CollectInterval, log, cycle.Run).Start(ctx)
		return nil
	}

	_, err = cycle.Run(ctx)
	return err
}

// buildSinks returns whichever database sinks are configured followed by
// the CSV writer. The CSV files go last so that a cycle failing in a
// database sink leaves no new files on disk.
func buildSinks(ctx context.Context, cfg *config.Config, log logger.Logger) ([]core.Sink, func(), error) {
	var sinks []core.Sink

	var (
		sqliteDB *sql.DB
		pgPool   *pgxpool.Pool
	)
	closeAll := func() {
		if sqliteDB != nil {
			sqliteDB.Close()
		}
		if pgPool != nil {
			pgPool.Close()
		}
	}

	if cfg.SQLitePath != "" {
		db, err := sqlite.NewSqliteDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		sqliteDB = db
		sinks = append(sinks, sqlite.NewRowRepository(db))
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		pgPool = pool
		sinks = append(sinks, postgres.NewRowRepository(pool))
	}

	sinks = append(sinks, csvfile.NewWriter(cfg.OutputDir, cfg.LatestName, cfg.ArchivePrefix, log))

	return sinks, closeAll, nil
}
