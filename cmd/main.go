package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/signupdesk/internal/adapters/http/apiclient"
	"github.com/okian/signupdesk/internal/adapters/http/site"
	"github.com/okian/signupdesk/internal/app"
	"github.com/okian/signupdesk/internal/config"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

// HTTP server timeout constants. A signup request loads the page and then
// posts, so the write timeout covers two API deadlines.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 20 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metricsOptions(cfg)...)

	srv, err := newServer(cfg, env.NewSystem(), log)
	if err != nil {
		log.Error(ctx, "failed to build server", logger.Error(err))
		os.Exit(1)
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api_base_url", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// metricsOptions maps the metrics settings onto the global manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithHistogramBuckets(cfg.MetricsBucketsMS),
	}
}

// newServer wires the API client, the page factory and the site routes.
func newServer(cfg *config.Config, e env.Environment, log logger.Logger) (*http.Server, error) {
	client, err := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.RequestTimeout()),
		apiclient.WithEnvironment(e),
		apiclient.WithLogger(log.Named("apiclient")),
	)
	if err != nil {
		return nil, err
	}

	pageLog := log.Named("page")
	newPage := func(ctx context.Context) (*app.Page, error) {
		return app.New(ctx, client,
			app.WithEnvironment(e),
			app.WithLogger(pageLog),
			app.WithQueueSize(cfg.UIQueueSize),
			app.WithMessageLifetime(cfg.MessageLifetime()),
			app.WithLocale(cfg.Language()),
		)
	}
	s := site.New(newPage, site.WithLogger(log.Named("site")))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}, nil
}
