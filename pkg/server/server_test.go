package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/credentials"
	"tilehub/atlas/pkg/ratelimit"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/telemetry/logging"
	"tilehub/atlas/pkg/telemetry/metrics"
	"tilehub/atlas/pkg/upstream"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Proxy.PublicOrigin = "https://proxy.example.com"
	cfg.RateLimit.Requests = 3
	cfg.RateLimit.Window = time.Minute

	reg := registry.New()
	if err := reg.Register(&registry.StyleDescriptor{
		ID:          "demo",
		UpstreamURL: "https://upstream.example.com/style.json",
		Provider:    registry.ProviderNone,
		TileTemplates: map[string]string{
			registry.DefaultSourceKey: "https://upstream.example.com/{z}/{x}/{y}.pbf",
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	byteCache := cache.New(64, 0)
	t.Cleanup(byteCache.Close)

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())

	return NewServer(cfg, Components{
		Registry:    reg,
		Credentials: credentials.NewStore(nil),
		Cache:       byteCache,
		Limiter:     ratelimit.NewClientLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		Upstream:    upstream.NewClient(cfg.Upstream, logging.NewRedactor()),
		Metrics:     collector,
	})
}

func TestHandlerServesHealth(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request ID header on response")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}

func TestHandlerPreflight(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/style/demo", nil)
	req.Header.Set("Origin", "https://viewer.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("no CORS headers on preflight response")
	}
}

func TestHandlerRateLimitsProxyRoutesOnly(t *testing.T) {
	handler := newTestServer(t).Handler()

	// Exhaust the 3-request budget on a proxied route. Upstream failures
	// still count; only the status matters here.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tiles/demo/default/30/0/0", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled early", i+1)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tiles/demo/default/30/0/0", nil)
	req.RemoteAddr = "203.0.113.9:40000"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fourth request status = %d, want 429", rec.Code)
	}

	// Health stays reachable for the same client.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:40000"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d after rate limit", rec.Code)
	}
}

func TestHandlerUnknownRoute(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		// stdlib mux 404; nothing custom to assert beyond the status.
		t.Logf("content type = %q", rec.Header().Get("Content-Type"))
	}
}
