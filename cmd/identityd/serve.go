package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/credstore/memory"
	"github.com/MrEthical07/identity/credstore/postgres"
	"github.com/MrEthical07/identity/httpapi"
	"github.com/MrEthical07/identity/internal/config"
	"github.com/MrEthical07/identity/internal/logging"
	"github.com/MrEthical07/identity/internal/tracing"
	promexport "github.com/MrEthical07/identity/metrics/export/prometheus"
	"github.com/MrEthical07/identity/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API and observability servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger := logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runServe(ctx, cfg, logger, nil); err != nil {
				logging.Error(context.Background(), logger, "identityd stopped with error", err)
				return err
			}
			return nil
		},
	}
}

// runServe blocks until ctx ends or a server fails. When ready is non-nil
// it receives the bound API and metrics addresses once both listen.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger, ready chan<- [2]string) error {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}

	tp, shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", slog.String("error", err.Error()))
		}
	}()

	// -------- DEPENDENCIES --------
	startupCtx, cancelStartup := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancelStartup()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("redis.url", "unparseable").Wrap(err)
	}
	client := redis.NewClient(redisOpts)
	defer func() { _ = client.Close() }()

	if err := connect(startupCtx, logger, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		return err
	}

	var credentials identity.CredentialStore
	if cfg.Database.URL != "" {
		var pool *pgxpool.Pool
		if err := connect(startupCtx, logger, "postgres", func(ctx context.Context) error {
			p, err := postgres.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			return err
		}
		defer pool.Close()
		credentials = postgres.New(pool)
	} else {
		logger.Warn("no database configured, accounts are kept in memory and lost on restart")
		credentials = memory.New()
	}

	// -------- ENGINE --------
	engine, err := identity.New().
		WithConfig(engineCfg).
		WithRedis(client).
		WithCredentialStore(credentials).
		WithAuditSink(auditSink(cfg.Audit.Sink, logger)).
		WithLogger(logger).
		WithTracerProvider(tp).
		Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer engine.Close()

	api, err := httpapi.New(engine, httpapi.Options{
		ServiceName: serviceName,
		Version:     version,
		Logger:      logger,
		Checks: map[string]httpapi.Check{
			"redis":    func(ctx context.Context) error { return client.Ping(ctx).Err() },
			"database": credentials.Ping,
		},
		ReadyTimeout: cfg.HTTP.ReadyTimeout,
		TrustProxy:   cfg.HTTP.TrustProxy,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("http.cors_origins", cfg.HTTP.CORSOrigins).Wrap(err)
	}

	// -------- OBSERVABILITY --------
	var (
		obs      *observability.Server
		obsErrCh <-chan error
		obsAddr  string
	)
	if cfg.Metrics.Enabled {
		obs, err = observability.NewServer(cfg.Metrics.Addr, func() bool {
			readyCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ReadyTimeout)
			defer cancel()
			return engine.Ready(readyCtx) == nil
		}, logger, promexport.NewCollector(engine))
		if err != nil {
			return err
		}
		api = obs.HTTPMetrics().Instrument(api)
		if obsErrCh, err = obs.Start(); err != nil {
			return err
		}
		obsAddr = obs.Addr()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := obs.Stop(stopCtx); err != nil {
				logger.Warn("stop observability server", slog.String("error", err.Error()))
			}
		}()
	}

	// -------- API --------
	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("API_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	apiErrCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiErrCh <- err
		}
	}()
	logger.Info("identityd ready",
		slog.String("addr", listener.Addr().String()),
		slog.String("metrics_addr", obsAddr),
		slog.String("version", version),
	)
	if ready != nil {
		ready <- [2]string{listener.Addr().String(), obsAddr}
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-apiErrCh:
		serveErr = oops.Code("API_SERVE_FAILED").Wrap(err)
	case err, ok := <-obsErrCh:
		if ok {
			serveErr = oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", slog.String("error", err.Error()))
	}
	return serveErr
}

func auditSink(kind string, logger *slog.Logger) identity.AuditSink {
	switch kind {
	case "stdout":
		return identity.NewJSONWriterSink(os.Stdout)
	case "log":
		return identity.NewSlogSink(logger.With(slog.String("stream", "audit")))
	default:
		return identity.NoOpSink{}
	}
}
