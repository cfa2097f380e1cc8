// Package server assembles the HTTP surface of the proxy: routes,
// middleware chain, and graceful lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/convert"
	"tilehub/atlas/pkg/credentials"
	"tilehub/atlas/pkg/proxy"
	"tilehub/atlas/pkg/proxy/handlers"
	"tilehub/atlas/pkg/proxy/middleware"
	"tilehub/atlas/pkg/ratelimit"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/style"
	"tilehub/atlas/pkg/telemetry/metrics"
	"tilehub/atlas/pkg/upstream"
)

// Components are the shared instances the server serves requests from.
// They are constructed once at startup and passed in; the server owns no
// globals.
type Components struct {
	Registry    *registry.Registry
	Credentials *credentials.Store
	Cache       *cache.ByteCache
	Limiter     *ratelimit.ClientLimiter
	Upstream    *upstream.Client

	// Metrics may be nil when telemetry.metrics.enabled is false.
	Metrics *metrics.Collector
}

// Server is the HTTP proxy server.
type Server struct {
	config       *config.Config
	components   Components
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new proxy server over the given components.
func NewServer(cfg *config.Config, comps Components) *Server {
	return &Server{
		config:       cfg,
		components:   comps,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Proxy.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Proxy.ReadTimeout,
		WriteTimeout:   s.config.Proxy.WriteTimeout,
		IdleTimeout:    s.config.Proxy.IdleTimeout,
		MaxHeaderBytes: s.config.Proxy.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", s.config.Proxy.ListenAddress,
			"public_origin", s.config.Proxy.PublicOrigin,
			"styles", s.components.Registry.Len(),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.Proxy.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Proxy.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the route table and middleware chain.
func (s *Server) Handler() http.Handler {
	cfg := s.config
	comps := s.components

	rewriter := style.NewRewriter(
		comps.Registry,
		comps.Credentials,
		comps.Upstream,
		cfg.Proxy.PublicOrigin,
		cfg.Upstream.StyleTimeout,
	)
	tileProxy := proxy.NewTileProxy(
		comps.Registry,
		comps.Credentials,
		comps.Cache,
		comps.Upstream,
		cfg.Cache.TileTTL,
		cfg.Upstream.TileTimeout,
	)
	converter := convert.New(comps.Upstream, cfg.Upstream.StyleTimeout)

	styleHandler := handlers.NewStyleHandler(rewriter, comps.Registry, comps.Cache, comps.Metrics, cfg.Cache.StyleTTL)
	tileHandler := handlers.NewTileHandler(tileProxy, comps.Registry, comps.Metrics, cfg.Cache.TileTTL)
	refHandler := handlers.NewRefHandler(rewriter, comps.Cache, comps.Metrics, cfg.Cache.StyleTTL)
	convertHandler := handlers.NewConvertHandler(converter, comps.Metrics)
	healthHandler := handlers.NewHealthHandler()

	// The rate gate applies to the proxying routes only; health, metrics,
	// and the administrative converter bypass it.
	limited := func(h http.Handler) http.Handler { return h }
	if cfg.RateLimit.Enabled && comps.Limiter != nil {
		limited = middleware.RateLimitMiddleware(comps.Limiter, comps.Metrics)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /style/{styleId}", limited(styleHandler))
	mux.Handle("GET /tiles/{styleId}/{sourceId}/{z}/{x}/{y}", limited(tileHandler))
	mux.Handle("GET /ref/{provider}/{encoded}", limited(refHandler))
	mux.Handle("GET /ref/{provider}/{encoded}/{suffix...}", limited(refHandler))
	mux.Handle("POST /convert", convertHandler)
	mux.Handle("GET /health", healthHandler)

	if comps.Metrics != nil {
		path := cfg.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, comps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.TimeoutMiddleware(cfg.Proxy.WriteTimeout)(handler)
	handler = middleware.CORSMiddleware(cfg.Proxy.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}
