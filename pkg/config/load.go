package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// ATLAS_SECTION_FIELD (e.g. ATLAS_PROXY_LISTEN_ADDRESS) and always take
// precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies ATLAS_* environment variable overrides.
// Credential secrets (ATLAS_CREDENTIAL_<PROVIDER>) are resolved separately
// by the credentials package so that secret values never pass through here.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ATLAS_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("ATLAS_PROXY_PUBLIC_ORIGIN"); val != "" {
		cfg.Proxy.PublicOrigin = val
	}
	if val := os.Getenv("ATLAS_REGISTRY_FILE"); val != "" {
		cfg.Registry.File = val
	}
	if val := os.Getenv("ATLAS_REGISTRY_SQLITE_PATH"); val != "" {
		cfg.Registry.SQLitePath = val
	}
	if val := os.Getenv("ATLAS_CACHE_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	if val := os.Getenv("ATLAS_CACHE_TILE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TileTTL = d
		}
	}
	if val := os.Getenv("ATLAS_CACHE_STYLE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.StyleTTL = d
		}
	}
	if val := os.Getenv("ATLAS_RATE_LIMIT_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.Requests = n
		}
	}
	if val := os.Getenv("ATLAS_RATE_LIMIT_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.Window = d
		}
	}
	if val := os.Getenv("ATLAS_UPSTREAM_TILE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.TileTimeout = d
		}
	}
	if val := os.Getenv("ATLAS_UPSTREAM_STYLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.StyleTimeout = d
		}
	}
	if val := os.Getenv("ATLAS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ATLAS_MAINTENANCE_SCHEDULE"); val != "" {
		cfg.Maintenance.Schedule = val
	}
}
