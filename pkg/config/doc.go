// Package config provides YAML-based configuration loading for Atlas with
// defaults, validation, and ATLAS_* environment variable overrides.
package config
