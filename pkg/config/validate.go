package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors. It returns the first problem
// found, phrased with the YAML path of the offending field.
func Validate(cfg *Config) error {
	if cfg.Proxy.ListenAddress == "" {
		return fmt.Errorf("proxy.listen_address must not be empty")
	}
	if !strings.Contains(cfg.Proxy.ListenAddress, ":") {
		return fmt.Errorf("proxy.listen_address %q must be host:port", cfg.Proxy.ListenAddress)
	}

	if cfg.Proxy.PublicOrigin != "" {
		u, err := url.Parse(cfg.Proxy.PublicOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy.public_origin %q must be an absolute URL", cfg.Proxy.PublicOrigin)
		}
	}

	for id, style := range cfg.Registry.Styles {
		if style.URL == "" {
			return fmt.Errorf("registry.styles.%s.url must not be empty", id)
		}
		u, err := url.Parse(style.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("registry.styles.%s.url %q must be an absolute URL", id, style.URL)
		}
		for source, tmpl := range style.Tiles {
			if !strings.Contains(tmpl, "{z}") || !strings.Contains(tmpl, "{x}") || !strings.Contains(tmpl, "{y}") {
				return fmt.Errorf("registry.styles.%s.tiles.%s %q must contain {z}, {x} and {y} placeholders", id, source, tmpl)
			}
		}
	}

	for name, cred := range cfg.Credentials {
		if cred.Param == "" {
			return fmt.Errorf("credentials.%s.param must not be empty", name)
		}
	}

	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if cfg.Cache.StyleTTL < 0 || cfg.Cache.TileTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate_limit.requests must be positive when the limiter is enabled")
		}
		if cfg.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive when the limiter is enabled")
		}
	}

	if cfg.Upstream.TileTimeout <= 0 || cfg.Upstream.StyleTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}
	if cfg.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream.max_retries must not be negative")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level %q must be one of debug, info, warn, error", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format %q must be json or text", cfg.Telemetry.Logging.Format)
	}

	return nil
}
