package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/celestio/celestio/internal/cache"
	"github.com/celestio/celestio/internal/config"
	"github.com/celestio/celestio/internal/engine"
	"github.com/celestio/celestio/internal/health"
	"github.com/celestio/celestio/internal/metrics"
	"github.com/celestio/celestio/internal/model"
	"github.com/celestio/celestio/internal/provider"
	"github.com/celestio/celestio/internal/provider/ephemeris"
	"github.com/celestio/celestio/internal/provider/usno"
	"github.com/celestio/celestio/internal/server"
	"github.com/celestio/celestio/internal/store"
)

// engineOpen is the injection point for a numerical core. Builds that link
// an ephemeris engine set this in an init function; without one the local
// backend reports itself unavailable.
var engineOpen engine.OpenFunc

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve celestial tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		logger := initLogger(cfg.Logging)
		defer logger.Sync()

		logger.Info("starting celestio",
			zap.String("version", version),
			zap.String("default_backend", string(cfg.DefaultBackend)),
			zap.String("config_file", cfg.SourceFile),
		)

		reg := prometheus.NewRegistry()
		m := metrics.NewMetrics(reg)

		app, err := wire(cfg, logger, m)
		if err != nil {
			return err
		}
		defer app.factory.Close()

		// Metrics and health run on an HTTP sidecar; the MCP protocol
		// itself speaks over stdio.
		var metricsServer *http.Server
		if cfg.Metrics.Enabled {
			metricsServer = startMetricsServer(cfg.Metrics, reg, app.health, logger)
		}

		srv := server.New(cfg, logger, m, app.factory, app.results, version)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err = srv.Run(ctx)

		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
				logger.Error("failed to shutdown metrics server", zap.Error(serr))
			}
		}

		logger.Info("celestio shutdown complete")
		return err
	},
}

// app holds the wired long-lived components of a serve run
type app struct {
	prereq  *cache.Prerequisite
	results *cache.Result
	factory *provider.Factory
	health  *health.HealthCheck
}

// wire builds the component graph from configuration: byte stores, the
// prerequisite and result caches, and the provider factory.
func wire(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	ephStore, err := buildStore(cfg.Ephemeris.Storage, cfg.Ephemeris.DataDir, cfg.Ephemeris.Remote, logger)
	if err != nil {
		return nil, err
	}
	resultStore, err := buildStore(cfg.Results.Storage, cfg.Results.DataDir, cfg.Results.Remote, logger)
	if err != nil {
		return nil, err
	}

	prereq, err := cache.NewPrerequisite(cache.PrerequisiteConfig{
		CacheDir: cfg.Ephemeris.CacheDir,
		Checksum: cfg.Ephemeris.Checksum,
	}, ephStore, logger, m)
	if err != nil {
		return nil, err
	}

	results := cache.NewResult(resultStore, logger, m)

	factory := provider.NewFactory(provider.Deps{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Prereq:     prereq,
		EngineOpen: engineOpen,
	})
	factory.RegisterBuilder(model.BackendUSNO, usno.New)
	factory.RegisterBuilder(model.BackendEphemeris, ephemeris.New)

	checks := map[string]health.CheckFunc{
		"ephemeris_store": storeProbe(ephStore),
		"result_store":    storeProbe(resultStore),
	}
	hc := health.NewHealthCheck(checks, logger)

	return &app{prereq: prereq, results: results, factory: factory, health: hc}, nil
}

// storeProbe checks that a byte store answers existence queries
func storeProbe(s store.ByteStore) health.CheckFunc {
	return func(ctx context.Context) error {
		_, err := s.Exists(ctx, ".probe")
		return err
	}
}

func buildStore(kind, dataDir string, remote config.RemoteStoreConfig, logger *zap.Logger) (store.ByteStore, error) {
	k, err := store.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case store.KindFilesystem:
		return store.NewFilesystem(dataDir)
	case store.KindMemory:
		return store.NewMemory(), nil
	case store.KindRemote:
		return store.NewRemote(store.RemoteConfig{
			Endpoint:   remote.Endpoint,
			Bucket:     remote.Bucket,
			Prefix:     remote.Prefix,
			Timeout:    remote.Timeout,
			MaxRetries: remote.MaxRetries,
			RetryDelay: remote.RetryDelay,
		}, logger)
	default:
		return store.NewNop(), nil
	}
}

func startMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry, hc *health.HealthCheck, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	logger.Info("metrics server started",
		zap.Int("port", cfg.Port),
		zap.String("path", cfg.Path),
	)
	return srv
}

var fetchEphemerisCmd = &cobra.Command{
	Use:   "fetch-ephemeris",
	Short: "Fetch and verify the configured ephemeris file into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		logger := initLogger(cfg.Logging)
		defer logger.Sync()

		reg := prometheus.NewRegistry()
		m := metrics.NewMetrics(reg)

		ephStore, err := buildStore(cfg.Ephemeris.Storage, cfg.Ephemeris.DataDir, cfg.Ephemeris.Remote, logger)
		if err != nil {
			return err
		}
		prereq, err := cache.NewPrerequisite(cache.PrerequisiteConfig{
			CacheDir: cfg.Ephemeris.CacheDir,
			Checksum: cfg.Ephemeris.Checksum,
		}, ephStore, logger, m)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, err := prereq.EnsureLocal(ctx, cfg.Ephemeris.File)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective backend for every operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cfg.SourceFile != "" {
			fmt.Fprintf(out, "config file: %s\n", cfg.SourceFile)
		}
		fmt.Fprintf(out, "default backend: %s\n", cfg.DefaultBackend)
		for _, op := range model.OperationKinds {
			fmt.Fprintf(out, "%-16s %s\n", op, cfg.BackendFor(op))
		}
		return nil
	},
}
