package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pumpfun-alerts/internal/config"
	"pumpfun-alerts/internal/decode"
	"pumpfun-alerts/internal/dispatch"
	"pumpfun-alerts/internal/observability"
	"pumpfun-alerts/internal/pipeline"
	"pumpfun-alerts/internal/ratelimit"
	"pumpfun-alerts/internal/solana"
	"pumpfun-alerts/internal/stats"
	"pumpfun-alerts/internal/storage"
	chstore "pumpfun-alerts/internal/storage/clickhouse"
	"pumpfun-alerts/internal/storage/memory"
	"pumpfun-alerts/internal/storage/migrations"
	pgstore "pumpfun-alerts/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to alert_config.json (optional)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for alert history (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the event archive (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, empty config default :9090)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory alert history instead of PostgreSQL")
	enableMetrics := flag.Bool("enable-metrics", true, "Expose /metrics, /health and /status")

	flag.Parse()

	logger := log.New(os.Stdout, "[alertbot] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *wsEndpoint != "" {
		cfg.WSEndpoint = *wsEndpoint
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	channels := cfg.BuildChannels()
	if len(channels) == 0 {
		logger.Fatal("No notification channels configured. Enable telegram, discord or a webhook in the config")
	}
	for _, ch := range channels {
		logger.Printf("Channel enabled: %s", ch.Name())
	}

	recorder := stats.NewRecorder()

	var metrics *observability.Metrics
	if *enableMetrics {
		metrics = observability.NewMetrics("")
		startMetricsServer(logger, cfg.MetricsAddr, recorder)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, channels, recorder, metrics, *useMemory)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the stores, session and pipeline, then blocks until shutdown.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config, channels []dispatch.Channel, recorder *stats.Recorder, metrics *observability.Metrics, useMemory bool) error {
	// Alert history store
	var alertStore storage.AlertStore = memory.NewAlertStore()
	if !useMemory && cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		alertStore = pgstore.NewAlertStore(pool)
		logger.Println("Alert history: postgres")
	} else {
		logger.Println("Alert history: in-memory")
	}

	// Event archive (optional)
	var archive storage.EventArchive
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer conn.Close()
		archive = chstore.NewEventArchive(conn)
		logger.Println("Event archive: clickhouse")
	}

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Channels:     channels,
		Retry:        cfg.RetryConfig(),
		DedupWindow:  cfg.SignatureWindow(),
		MintCooldown: cfg.MintCooldown(),
		Recorder:     recorder,
		Metrics:      metrics,
		Logger:       logger,
		Alerts:       alertStore,
	})

	logger.Printf("Connecting to %s (commitment=%s)...", cfg.WSEndpoint, cfg.Commitment)
	session, err := solana.Open(ctx, solana.SessionOptions{
		Endpoint: cfg.WSEndpoint,
		Filter: solana.LogsFilter{
			Mentions:   []string{solana.PumpProgram},
			Commitment: cfg.Commitment,
		},
		Logger: logger,
		OnState: func(from, to solana.SessionState) {
			logger.Printf("Session state: %s -> %s", from, to)
			switch to {
			case solana.StateSubscribed:
				reconnect := from == solana.StateReconnecting
				recorder.SessionState(reconnect)
				if metrics != nil {
					if reconnect {
						metrics.SessionReconnects.Inc()
					} else {
						metrics.SessionConnects.Inc()
					}
				}
			}
		},
	})
	if err != nil {
		return fmt.Errorf("open subscription: %w", err)
	}
	defer session.Close()

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Source:     session,
		Decoder:    decode.NewDecoder(logger),
		Filter:     cfg.FilterConfig(),
		Limiter:    ratelimit.NewLimiter(cfg.LimiterConfig()),
		Dispatcher: dispatcher,
		Recorder:   recorder,
		Metrics:    metrics,
		Archive:    archive,
		Logger:     logger,
	})

	logger.Println("Starting alert pipeline...")
	return runner.Run(ctx)
}

// startMetricsServer exposes /metrics, /health and the /status snapshot.
func startMetricsServer(logger *log.Logger, addr string, recorder *stats.Recorder) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(recorder.Snapshot()); err != nil {
				logger.Printf("Status encode error: %v", err)
			}
		})
		logger.Printf("Starting metrics server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()
}
