// Package app provides centralized dependency wiring and lifecycle control
// for the relay server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"edgerelay/config"
	"edgerelay/internal/cache"
	"edgerelay/internal/classify"
	"edgerelay/internal/document"
	"edgerelay/internal/httpclient"
	"edgerelay/internal/relay"
	"edgerelay/internal/server"
)

// App represents the running application with all its dependencies.
type App struct {
	config      *config.Config
	closeStores func() error
	orch        *relay.Orchestrator
	server      *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates an App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &App{config: cfg}

	docStore, segStore, closeStores, err := buildStores(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache stores: %w", err)
	}
	app.closeStores = closeStores

	docs := document.NewCache(docStore, cfg.Cache.DocumentTTL)
	segs := classify.NewSegmentCache(segStore, cfg.Cache.SegmentTTL)

	fetcher := document.NewFetcher(httpclient.NewHTTPClientWithTimeout(cfg.Origin.Timeout))

	classifier := classify.NewClient(classify.ClientConfig{
		URL:     cfg.Classifier.URL,
		Token:   cfg.Classifier.Token,
		Timeout: cfg.Classifier.Timeout,
	}, httpclient.NewHTTPClientWithTimeout(cfg.Classifier.Timeout))

	if cfg.Classifier.URL == "" {
		slog.Warn("CLASSIFIER_URL not set - pages will be served with empty segments")
	}

	app.orch = relay.New(docs, fetcher, segs, classifier)

	app.server = server.New(app.orch, &server.Config{
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	return app, nil
}

// buildStores creates the two cache namespaces: redis when configured,
// in-process LRU otherwise. Both redis namespaces share one connection pool,
// so the returned closer releases backend resources exactly once. The document
// namespace retains entries past the freshness TTL so expired bodies stay
// available as origin-failure fallbacks.
func buildStores(cfg config.CacheConfig) (docStore, segStore cache.Store, closer func() error, err error) {
	docCfg := cache.Config{
		Namespace: "edgerelay:doc",
		TTL:       cfg.DocumentTTL * document.StaleRetentionFactor,
		LocalSize: cfg.LocalSize,
	}
	segCfg := cache.Config{
		Namespace: "edgerelay:seg",
		TTL:       cfg.SegmentTTL,
		LocalSize: cfg.LocalSize,
	}

	if cfg.RedisURL == "" {
		slog.Info("using in-process cache stores", "size", cfg.LocalSize)
		return cache.NewLocalStore(docCfg), cache.NewLocalStore(segCfg), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w (also: close error: %v)", err, closeErr)
		}
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis cache stores connected",
		"doc_retention", docCfg.TTL, "seg_ttl", segCfg.TTL)

	return cache.NewRedisStoreWithClient(client, docCfg),
		cache.NewRedisStoreWithClient(client, segCfg),
		client.Close, nil
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown tears down components in dependency order: HTTP server first,
// then in-flight deferred cache writes, then the stores. Idempotent and safe
// for repeated calls.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// Let pending deferred cache writes land; they are best-effort, but a
	// clean shutdown should not throw them away.
	if a.orch != nil {
		a.orch.Flush()
	}

	if a.closeStores != nil {
		if err := a.closeStores(); err != nil {
			errs = append(errs, fmt.Errorf("cache store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}
