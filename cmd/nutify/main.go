// Command nutify is the long-running supervisory daemon: it polls NUT for
// telemetry, runs the connection monitor, serves the report scheduler, and
// exposes the live bus over WebSocket. It is the composition root for
// every component in this module.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nutify/nutify/internal/bus"
	"github.com/nutify/nutify/internal/commands"
	"github.com/nutify/nutify/internal/config"
	"github.com/nutify/nutify/internal/connection"
	"github.com/nutify/nutify/internal/events"
	"github.com/nutify/nutify/internal/httpapi"
	"github.com/nutify/nutify/internal/logging"
	"github.com/nutify/nutify/internal/notify"
	"github.com/nutify/nutify/internal/nutclient"
	"github.com/nutify/nutify/internal/poller"
	"github.com/nutify/nutify/internal/reports"
	"github.com/nutify/nutify/internal/secret"
	"github.com/nutify/nutify/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

type appFlags struct {
	httpAddr     string
	dbDriver     string
	dbDSN        string
	secretEnvVar string
	logLevel     string
	upsName      string
	upsHost      string
	timezone     string
	nominalPower float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &appFlags{}

	root := &cobra.Command{
		Use:   "nutify",
		Short: "Nutify is a supervisory service for a NUT-driven UPS fleet",
		Long: `Nutify polls Network UPS Tools for live telemetry, persists a
time-series record of every numeric variable the device exposes, detects and
reacts to device events, fans out notifications, drives scheduled reports,
and serves live data to a browser UI over WebSockets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&flags.httpAddr, "http-addr", envOrDefault("NUTIFY_HTTP_ADDR", ":8090"), "Internal HTTP surface listen address (ws_event + /ws)")
	root.PersistentFlags().StringVar(&flags.dbDriver, "db-driver", envOrDefault("NUTIFY_DB_DRIVER", "sqlite"), "Database driver (sqlite or postgres)")
	root.PersistentFlags().StringVar(&flags.dbDSN, "db-dsn", envOrDefault("NUTIFY_DB_DSN", "./nutify.db"), "Database DSN or file path for SQLite")
	root.PersistentFlags().StringVar(&flags.secretEnvVar, "secret-env", envOrDefault("NUTIFY_SECRET_ENV", "NUTIFY_SECRET_KEY"), "Name of the environment variable carrying the process secret used to encrypt credentials at rest")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOrDefault("NUTIFY_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.upsName, "ups-name", envOrDefault("NUTIFY_UPS_NAME", ""), "UPS name as known to NUT (overrides nut config autodetect)")
	root.PersistentFlags().StringVar(&flags.upsHost, "ups-host", envOrDefault("NUTIFY_UPS_HOST", "localhost"), "NUT host serving the UPS")
	root.PersistentFlags().StringVar(&flags.timezone, "timezone", envOrDefault("NUTIFY_TIMEZONE", "UTC"), "IANA timezone used for bus/report timestamps")
	root.PersistentFlags().Float64Var(&flags.nominalPower, "default-nominal-power", 1000, "Fallback nominal power (W) when no static/sample value is available")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nutify %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, flags *appFlags) error {
	logger, err := logging.New(logging.Config{Level: flags.logLevel})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loc, err := time.LoadLocation(flags.timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", flags.timezone), zap.Error(err))
		loc = time.UTC
	}

	// --- 1. NUT config store ---
	cfgStore := config.New(config.DefaultPaths())
	snap := cfgStore.Snapshot()

	upsName := flags.upsName
	if upsName == "" {
		upsName = snap.UPSName
	}
	upsHost := flags.upsHost
	if snap.UPSHost != "" && flags.upsHost == "localhost" {
		upsHost = snap.UPSHost
	}
	if upsName == "" {
		return fmt.Errorf("nutify: no UPS name configured (set --ups-name or NUT's upsmon.conf MONITOR line)")
	}

	// --- 2. Secret store ---
	processSecret := os.Getenv(flags.secretEnvVar)
	if processSecret == "" {
		logger.Warn("process secret is not set; credential encryption is disabled for this run", zap.String("env_var", flags.secretEnvVar))
	} else {
		secretStore, err := secret.NewStore(processSecret)
		if err != nil {
			return fmt.Errorf("failed to initialize secret store: %w", err)
		}
		secret.Init(secretStore)
	}

	// --- 3. Database ---
	gormDB, err := storage.New(storage.Config{
		Driver:   flags.dbDriver,
		DSN:      flags.dbDSN,
		Logger:   logger,
		LogLevel: gormLogLevel(flags.logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := storage.EnsureSchema(gormDB); err != nil {
		return fmt.Errorf("failed to ensure protected schema: %w", err)
	}

	drift := storage.NewDriftDetector(gormDB, logger)
	if err := drift.Run(ctx); err != nil {
		logger.Warn("drift detector reported errors", zap.Error(err))
	}

	// --- 4. Repositories ---
	staticRepo := storage.NewStaticRepository(gormDB)
	dynamicRepo := storage.NewDynamicRepository(gormDB)
	eventRepo := storage.NewEventRepository(gormDB)
	mailRepo := storage.NewMailConfigRepository(gormDB)
	ntfyRepo := storage.NewNtfyConfigRepository(gormDB)
	webhookRepo := storage.NewWebhookConfigRepository(gormDB)
	notificationRepo := storage.NewNotificationSettingRepository(gormDB)
	reportScheduleRepo := storage.NewReportScheduleRepository(gormDB)
	commandRepo := storage.NewCommandRepository(gormDB)
	variableRepo := storage.NewVariableRepository(gormDB)
	variableConfigRepo := storage.NewVariableConfigRepository(gormDB)
	setupRepo := storage.NewInitialSetupRepository(gormDB)

	// --- 5. NUT client ---
	runner := nutclient.NewExecRunner()
	nutPaths := nutclient.DefaultPaths()
	client := nutclient.New(runner, nutPaths, 10*time.Second)

	// --- 6. Live bus ---
	hub := bus.NewHub()
	go hub.Run(ctx)

	// --- 7. Notification dispatch + event pipeline ---
	dispatcher := notify.NewDispatcher(notificationRepo, mailRepo, ntfyRepo, webhookRepo, logger)
	pipeline := events.NewPipeline(eventRepo, staticRepo, dynamicRepo, setupRepo, dispatcher, hub, logger)

	// --- 8. Poller ---
	p := poller.New(poller.Config{
		UPSName:             upsName,
		UPSHost:             upsHost,
		DefaultNominalPower: flags.nominalPower,
		Timezone:            loc,
	}, client, staticRepo, dynamicRepo, variableConfigRepo, hub, logger)
	go p.Run(ctx)

	aggregator := poller.NewAggregationWorker(upsName, dynamicRepo, logger)
	go aggregator.Run(ctx)

	// --- 9. Connection monitor ---
	monitor := connection.New(connection.Config{
		UPSName: upsName,
		UPSHost: upsHost,
		Paths:   nutPaths,
		Restart: connection.DefaultRestartCommands(),
	}, client, runner, hub, pipeline, logger)
	go monitor.Run(ctx)

	// --- 10. Command executor ---
	executor := commands.New(client, commandRepo, variableRepo, upsName, upsHost, hub, logger)

	// --- 11. Report scheduler ---
	scheduler, err := reports.New(reportScheduleRepo, mailRepo, dynamicRepo, eventRepo, setupRepo, variableConfigRepo, loc, upsName, logger)
	if err != nil {
		return fmt.Errorf("failed to create report scheduler: %w", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start report scheduler: %w", err)
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("report scheduler shutdown error", zap.Error(err))
		}
	}()

	// --- 12. Internal HTTP surface ---
	mux := http.NewServeMux()
	httpapi.New(hub, executor, logger).Routes(mux)
	httpSrv := &http.Server{
		Addr:         flags.httpAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("internal http surface listening", zap.String("addr", flags.httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal http server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("nutify started",
		zap.String("version", version),
		zap.String("ups_name", upsName),
		zap.String("ups_host", upsHost),
		zap.String("timezone", loc.String()),
	)

	<-ctx.Done()
	logger.Info("shutting down nutify")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}

	logger.Info("nutify stopped")
	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
