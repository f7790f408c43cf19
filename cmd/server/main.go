package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"skydish/internal/access"
	"skydish/internal/api"
	"skydish/internal/catalog"
	"skydish/internal/config"
	"skydish/internal/database"
	"skydish/internal/events"
	"skydish/internal/heartbeat"
	"skydish/internal/metrics"
	"skydish/internal/report"
	"skydish/internal/scheduling"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(configPath string, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Heartbeats live in Redis when one is configured so every instance
	// sees the same liveness signal; sqlite is the single-node fallback.
	var (
		heartbeats scheduling.HeartbeatStore
		redisStore *heartbeat.RedisStore
	)
	if cfg.Redis.Address != "" {
		redisStore, err = heartbeat.NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return fmt.Errorf("connect heartbeat store: %w", err)
		}
		defer redisStore.Close()
		heartbeats = redisStore
	} else {
		logger.Warn().Msg("no redis configured, using sqlite heartbeat store")
		heartbeats = database.NewHeartbeatStore(db)
	}

	bus := events.NewBus()
	bus.Subscribe("", func(ev events.Event) {
		logger.Info().
			Str("event", ev.Type).
			Str("appointment_id", ev.AppointmentID).
			Str("status", ev.Status).
			Msg("appointment event")
	})

	engine := scheduling.NewEngine(db, heartbeats, scheduling.Config{
		HeartbeatStaleness: cfg.HeartbeatStaleness(),
	}, bus, logger)
	guard := access.NewGuard(db.Stores().Users, logger)
	searchCache := catalog.NewCache(db, cfg.CatalogCacheTTL(), logger)
	exporter := report.NewExporter(engine, logger)

	// Initial fleet sync plus reload on file change.
	err = config.WatchFleet(ctx, cfg.FleetConfigPath, 30*time.Second, func(fleet *config.FleetConfig) {
		if err := db.SyncFleetFromConfig(ctx, fleet, cfg.GuestCap()); err != nil {
			logger.Error().Err(err).Msg("fleet sync failed")
			return
		}
		searchCache.Invalidate()
	})
	if err != nil {
		return fmt.Errorf("watch fleet config: %w", err)
	}

	if cfg.Backup.Enabled {
		go backupLoop(ctx, db, cfg, logger)
	}
	if cfg.Monitoring.HealthCheckPort > 0 {
		go healthServer(ctx, cfg.Monitoring.HealthCheckPort, db, redisStore, logger)
	}
	if cfg.Monitoring.PrometheusEnabled && cfg.Monitoring.PrometheusPort > 0 {
		go metricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	server := api.NewServer(api.Options{
		Engine:        engine,
		Guard:         guard,
		Users:         db.Stores().Users,
		Heartbeats:    heartbeats,
		Catalog:       searchCache,
		Exporter:      exporter,
		RatePerSecond: cfg.API.RateLimitPerSecond,
		Burst:         cfg.API.RateLimitBurst,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.API.Port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func backupLoop(ctx context.Context, db *database.DB, cfg *config.Config, logger zerolog.Logger) {
	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.Backup(cfg.Backup.Path); err != nil {
				logger.Error().Err(err).Msg("backup failed")
				continue
			}
			removed, err := database.CleanupBackups(cfg.Backup.Path, retention)
			if err != nil {
				logger.Error().Err(err).Msg("backup cleanup failed")
			} else if removed > 0 {
				logger.Info().Int("removed", removed).Msg("old backups removed")
			}
		}
	}
}

func healthServer(ctx context.Context, port int, db *database.DB, redisStore *heartbeat.RedisStore, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(checkCtx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		if redisStore != nil {
			if err := redisStore.Ping(checkCtx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serveAux(ctx, port, mux, "health", logger)
}

func metricsServer(ctx context.Context, port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	serveAux(ctx, port, mux, "metrics", logger)
}

func serveAux(ctx context.Context, port int, handler http.Handler, name string, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Str("server", name).Msg("auxiliary server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("server", name).Msg("auxiliary server failed")
	}
}
