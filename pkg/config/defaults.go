package config

import "time"

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called after parsing and before validation.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = "127.0.0.1:8090"
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = 30 * time.Second
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = 60 * time.Second
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = 120 * time.Second
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = 1 << 20
	}

	// CORS defaults
	applyCORSDefaults(&cfg.Proxy.CORS)

	// Credential defaults
	for name, cred := range cfg.Credentials {
		if cred.Param == "" {
			cred.Param = "key"
			cfg.Credentials[name] = cred
		}
	}

	// Cache defaults
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 4096
	}
	if cfg.Cache.StyleTTL == 0 {
		cfg.Cache.StyleTTL = time.Hour
	}
	if cfg.Cache.TileTTL == 0 {
		cfg.Cache.TileTTL = 24 * time.Hour
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = 10 * time.Minute
	}

	// Rate limit defaults
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 600
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}

	// Upstream defaults
	if cfg.Upstream.TileTimeout == 0 {
		cfg.Upstream.TileTimeout = 10 * time.Second
	}
	if cfg.Upstream.StyleTimeout == 0 {
		cfg.Upstream.StyleTimeout = 30 * time.Second
	}
	if cfg.Upstream.MaxRetries == 0 {
		cfg.Upstream.MaxRetries = 2
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = 100
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = 10
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = 90 * time.Second
	}

	// Maintenance defaults
	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = "*/10 * * * *"
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "atlas"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}

func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID", "X-Cache"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = 3600
	}
}

// DefaultConfig returns a fully defaulted configuration with CORS and the
// rate limiter enabled. Useful for tests and the validate command.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Proxy.CORS.Enabled = true
	cfg.RateLimit.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
