// canopyd is the Canopy core server: it exposes the guarded AI call
// endpoint and wires the registry, handler table, guardrail gate,
// review hook, store, and event sink together.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/verdantlabs/canopy/core/pkg/api"
	"github.com/verdantlabs/canopy/core/pkg/auth"
	"github.com/verdantlabs/canopy/core/pkg/config"
	"github.com/verdantlabs/canopy/core/pkg/events"
	"github.com/verdantlabs/canopy/core/pkg/functions"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
	"github.com/verdantlabs/canopy/core/pkg/observability"
	"github.com/verdantlabs/canopy/core/pkg/orchestrator"
	"github.com/verdantlabs/canopy/core/pkg/registry"
	"github.com/verdantlabs/canopy/core/pkg/review"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry is optional; the server runs fine without a collector.
	var provider *observability.Provider
	if cfg.TelemetryEnabled {
		obs, err := observability.New(ctx, &observability.Config{
			ServiceName:    "canopyd",
			ServiceVersion: "1.0.0",
			Environment:    "production",
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SampleRate:     1.0,
			BatchTimeout:   5 * time.Second,
			Enabled:        true,
			Insecure:       true,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without it", "error", err)
		} else {
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = obs.Shutdown(shutCtx)
			}()
			provider = obs
		}
	}

	// Guardrail thresholds: built-in defaults, optionally overlaid
	// with an operator profile.
	gatecfg := guardrail.DefaultConfig()
	if cfg.GuardrailProfile != "" {
		loaded, err := guardrail.LoadProfile(cfg.GuardrailProfile)
		if err != nil {
			return err
		}
		gatecfg = loaded
		logger.Info("guardrail profile loaded", "path", cfg.GuardrailProfile)
	}

	// Store backend by DSN shape.
	var (
		st  store.Store
		err error
	)
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		st, err = store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("store ready", "backend", "postgres")
	} else {
		st, err = store.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("store ready", "backend", "sqlite", "dsn", cfg.DatabaseURL)
	}
	defer st.Close()

	// Event sink: Redis when reachable, otherwise in-process.
	var sink events.Sink = events.NewMemorySink()
	if cfg.RedisAddr != "" {
		rs := events.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			cancel()
			logger.Warn("redis unreachable, falling back to in-process event sink",
				"addr", cfg.RedisAddr, "error", err)
			_ = rs.Close()
		} else {
			cancel()
			sink = rs
			defer rs.Close()
			logger.Info("event sink ready", "backend", "redis", "addr", cfg.RedisAddr)
		}
	}

	reg := registry.Default()
	table := functions.DefaultTable(functions.Deps{
		Store:     st,
		Guardrail: gatecfg,
	})
	gate := guardrail.NewGate(gatecfg)

	// External validator hook: eligibility comes from the registry so
	// the allow-list cannot drift from the function catalog.
	var hook *review.Hook
	if cfg.ReviewEnabled && cfg.ReviewServiceURL != "" {
		eligible := make(map[string]bool)
		for _, spec := range reg.List() {
			if spec.ReviewEligible {
				eligible[registry.Key(spec.Domain, spec.Name)] = true
			}
		}
		reviewer := review.NewHTTPReviewer(cfg.ReviewServiceURL, cfg.ReviewTimeout)
		hook, err = review.NewHook(review.HookConfig{
			Enabled:    true,
			Eligible:   eligible,
			Expression: cfg.ReviewExpression,
		}, gatecfg, reviewer, logger)
		if err != nil {
			return err
		}
		logger.Info("review hook enabled", "url", cfg.ReviewServiceURL)
	}

	orc := orchestrator.New(orchestrator.Options{
		Registry: reg,
		Table:    table,
		Gate:     gate,
		Hook:     hook,
		Store:    st,
		Sink:     sink,
		Logger:   logger,
	})

	svc := api.NewService(orc, logger)
	if provider != nil {
		svc.WithMetrics(provider)
	}
	var validator *auth.JWTValidator
	if cfg.JWTSecret != "" {
		validator = auth.NewJWTValidator([]byte(cfg.JWTSecret))
	} else {
		logger.Warn("JWT_SECRET not set, API is unauthenticated")
	}
	limiter := api.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()
	handler := api.NewRouter(svc, api.RouterOptions{
		Validator:   validator,
		RateLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("canopyd listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
