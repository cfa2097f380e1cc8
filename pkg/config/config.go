package config

import "time"

// Config is the root configuration structure for Atlas.
// It contains all configuration sections for the proxy server, the style
// registry, credentials, caching, rate limiting, and telemetry.
type Config struct {
	// Proxy contains HTTP server configuration including listen address,
	// public origin, timeouts, and CORS settings.
	Proxy ProxyConfig `yaml:"proxy"`

	// Registry contains the style registry configuration: inline style
	// definitions, an optional watched styles file, or a sqlite record store.
	Registry RegistryConfig `yaml:"registry"`

	// Credentials maps provider names to upstream API credentials.
	// Secret values may be left empty in the file and supplied via
	// ATLAS_CREDENTIAL_<PROVIDER> environment variables.
	Credentials map[string]CredentialConfig `yaml:"credentials"`

	// Cache configures the in-memory tile/style byte cache.
	Cache CacheConfig `yaml:"cache"`

	// RateLimit configures the per-client request rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Upstream configures the HTTP client used for upstream fetches.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Maintenance configures scheduled cache and limiter sweeps.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// PublicOrigin is the externally visible origin of this service,
	// used when rewriting tile templates and sprite/glyph references
	// (e.g. "https://maps.example.com"). Required.
	PublicOrigin string `yaml:"public_origin"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	// Map-rendering clients are cross-origin by default, so CORS is
	// permissive unless narrowed here.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted. Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders lists headers exposed to clients.
	// Default: ["X-Request-ID", "X-Cache"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache duration in seconds. Default: 3600
	MaxAge int `yaml:"max_age"`
}

// RegistryConfig configures where style descriptors come from.
type RegistryConfig struct {
	// Styles contains inline style definitions keyed by style id.
	Styles map[string]StyleConfig `yaml:"styles"`

	// File is an optional path to a separate YAML file holding a
	// `styles:` map. When set it is merged over the inline definitions.
	File string `yaml:"file"`

	// Watch enables hot reload of File via fsnotify. Ignored when File
	// is empty. Default: false
	Watch bool `yaml:"watch"`

	// SQLitePath is an optional path to a sqlite database acting as the
	// configuration record store. Records found there are merged over
	// file and inline definitions at startup.
	SQLitePath string `yaml:"sqlite_path"`
}

// StyleConfig defines a single upstream style registration.
type StyleConfig struct {
	// URL is the absolute URL of the upstream style document.
	URL string `yaml:"url"`

	// Provider tags the style with a credential provider
	// (e.g. "maptiler", "mapbox", "none").
	Provider string `yaml:"provider"`

	// Tiles maps source ids found inside the style document to upstream
	// tile URL templates containing {z}/{x}/{y} placeholders. The key
	// "default" applies to any source id without its own entry.
	Tiles map[string]string `yaml:"tiles"`
}

// CredentialConfig defines an upstream API credential for a provider.
type CredentialConfig struct {
	// Secret is the API key value. Leave empty to source it from the
	// ATLAS_CREDENTIAL_<PROVIDER> environment variable.
	Secret string `yaml:"secret"`

	// Param is the query parameter name used to inject the secret
	// (e.g. "key", "access_token"). Default: "key"
	Param string `yaml:"param"`
}

// CacheConfig configures the in-memory byte cache.
type CacheConfig struct {
	// MaxEntries bounds the cache by entry count (not bytes).
	// Default: 4096
	MaxEntries int `yaml:"max_entries"`

	// StyleTTL is how long rewritten style documents stay cached.
	// Default: 1h
	StyleTTL time.Duration `yaml:"style_ttl"`

	// TileTTL is how long tile payloads stay cached. Default: 24h
	TileTTL time.Duration `yaml:"tile_ttl"`

	// CleanupInterval is how often the background sweep removes expired
	// entries. Zero disables the background goroutine (expired entries
	// are still never served). Default: 10m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Enabled controls whether the limiter gate is applied. Default: true
	Enabled bool `yaml:"enabled"`

	// Requests is the number of requests allowed per client per window.
	// Default: 600
	Requests int `yaml:"requests"`

	// Window is the trailing window duration. Default: 1m
	Window time.Duration `yaml:"window"`
}

// UpstreamConfig configures the HTTP client for upstream fetches.
type UpstreamConfig struct {
	// TileTimeout bounds a single tile fetch. Default: 10s
	TileTimeout time.Duration `yaml:"tile_timeout"`

	// StyleTimeout bounds a style document fetch. Default: 30s
	StyleTimeout time.Duration `yaml:"style_timeout"`

	// MaxRetries is the number of retries for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// MaxIdleConns sets the connection pool size. Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost sets the per-host pool size. Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle connections are kept. Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// MaintenanceConfig configures scheduled sweeps.
type MaintenanceConfig struct {
	// Schedule is a standard cron expression for cache/limiter sweeps.
	// Empty disables the scheduler. Default: "*/10 * * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace. Default: "atlas"
	Namespace string `yaml:"namespace"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`
}
