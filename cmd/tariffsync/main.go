// Command tariffsync launches the tariff ingestion and publishing pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc"

	"github.com/tariffops/tariffsync/internal/app/jobs"
	"github.com/tariffops/tariffsync/internal/config"
	"github.com/tariffops/tariffsync/internal/infra/persistence/migrations"
	"github.com/tariffops/tariffsync/internal/infra/persistence/postgres"
	"github.com/tariffops/tariffsync/internal/infra/sheets"
	"github.com/tariffops/tariffsync/internal/infra/wbapi"
	"github.com/tariffops/tariffsync/internal/observability"
	"github.com/tariffops/tariffsync/lib/telemetry"
)

const (
	defaultConfigPath        = "config/app.yaml"
	loggerPrefix             = "tariffsync "
	shutdownTimeout          = 30 * time.Second
	schedulerShutdownTimeout = 10 * time.Second
	lifecycleShutdownTimeout = 5 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
	startupTimeout           = 30 * time.Second
)

func main() {
	cfgPath := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := log.New(os.Stdout, loggerPrefix, log.LstdFlags|log.Lmicroseconds)

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	observability.SetLogger(observability.NewStdLogger(logger, appCfg.Verbose))
	logger.Printf("configuration initialised: env=%s, sinks=%d",
		appCfg.Environment, len(appCfg.Sheets.SpreadsheetIDs))

	telemetryShutdown, err := initTelemetry(ctx, logger, appCfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	pool, err := initDatabase(startupCtx, logger, appCfg)
	startupCancel()
	if err != nil {
		logger.Fatalf("initialise database: %v", err)
	}
	defer pool.Close()

	tariffStore := postgres.NewTariffStore(pool)
	spreadsheetStore := postgres.NewSpreadsheetStore(pool)
	registerConfiguredSinks(ctx, logger, spreadsheetStore, appCfg.Sheets.SpreadsheetIDs)

	var sink jobs.SinkPublisher
	if publisher := initPublisher(ctx, logger, appCfg); publisher != nil {
		sink = publisher
	}

	fetchRunner := jobs.NewRunner("fetch",
		jobs.NewFetchJob(wbapi.NewClient(appCfg.Provider), tariffStore))
	publishRunner := jobs.NewRunner("publish",
		jobs.NewPublishJob(tariffStore, spreadsheetStore, sink))

	scheduler, err := jobs.NewScheduler(ctx, appCfg.Schedule, fetchRunner, publishRunner)
	if err != nil {
		logger.Fatalf("initialise scheduler: %v", err)
	}
	scheduler.Start()

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() {
		// Prime the pipeline so a fresh deployment does not wait for the
		// first cron firing.
		_ = fetchRunner.Run(ctx)
		_ = publishRunner.Run(ctx)
	})

	logger.Print("pipeline started; awaiting shutdown signal")
	<-ctx.Done()
	logger.Print("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	performGracefulShutdown(shutdownCtx, logger, scheduler, &lifecycle, telemetryShutdown)
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}

func parseFlags() string {
	cfgPath := flag.String("config", defaultConfigPath, "Path to application configuration file")
	flag.Parse()
	return *cfgPath
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func initTelemetry(ctx context.Context, logger *log.Logger, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	_, shutdown, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EnableMetrics && cfg.OTLPEndpoint != "" {
		logger.Printf("telemetry initialized: endpoint=%s, service=%s", cfg.OTLPEndpoint, cfg.ServiceName)
	} else {
		logger.Print("telemetry disabled")
	}
	return shutdown, nil
}

func initDatabase(ctx context.Context, logger *log.Logger, appCfg config.AppConfig) (*pgxpool.Pool, error) {
	if appCfg.Database.MigrateOnStart {
		if err := migrations.ApplyEmbedded(ctx, appCfg.Database.DSN, logger); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	pool, err := pgxpool.New(ctx, appCfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	postgres.ObservePoolMetrics(pool, string(appCfg.Environment))
	logger.Print("database connection established")
	return pool, nil
}

func registerConfiguredSinks(ctx context.Context, logger *log.Logger, store *postgres.SpreadsheetStore, ids []string) {
	for _, id := range ids {
		if err := store.RegisterSpreadsheet(ctx, id); err != nil {
			logger.Printf("register spreadsheet %s: %v", id, err)
		}
	}
}

func initPublisher(ctx context.Context, logger *log.Logger, appCfg config.AppConfig) *sheets.Publisher {
	if !appCfg.SinkEnabled() {
		logger.Print("sheets publishing disabled: no credentials configured")
		return nil
	}
	client, err := sheets.NewClient(ctx, appCfg.Sheets)
	if err != nil {
		logger.Printf("sheets client unavailable, publishing disabled: %v", err)
		return nil
	}
	return sheets.NewPublisher(client)
}

func performGracefulShutdown(ctx context.Context, logger *log.Logger, scheduler *jobs.Scheduler, lifecycle *conc.WaitGroup, telemetryShutdown func(context.Context) error) {
	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		logger.Printf("shutdown: %s...", name)
		if err := fn(stepCtx); err != nil {
			logger.Printf("shutdown: %s failed: %v", name, err)
		} else {
			logger.Printf("shutdown: %s completed", name)
		}
	}

	shutdownStep("stopping scheduler", schedulerShutdownTimeout, scheduler.Stop)

	shutdownStep("waiting for lifecycle goroutines", lifecycleShutdownTimeout, func(stepCtx context.Context) error {
		done := make(chan struct{})
		go func() {
			lifecycle.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-stepCtx.Done():
			return fmt.Errorf("timeout waiting for goroutines: %w", stepCtx.Err())
		}
	})

	if telemetryShutdown != nil {
		shutdownStep("flushing telemetry", telemetryShutdownTimeout, telemetryShutdown)
	}
}
