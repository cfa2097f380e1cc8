package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tilehub/atlas/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply defaults and environment overrides,
and run all validation checks without starting the server.

Examples:
  # Validate the default config file
  atlas validate

  # Validate a specific file
  atlas validate --config /etc/atlas/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Listen address: %s\n", cfg.Proxy.ListenAddress)
	fmt.Printf("  Public origin:  %s\n", cfg.Proxy.PublicOrigin)
	fmt.Printf("  Styles:         %d\n", len(cfg.Registry.Styles))
	fmt.Printf("  Credentials:    %d providers\n", len(cfg.Credentials))
	if cfg.Registry.File != "" {
		fmt.Printf("  Styles file:    %s (watch: %t)\n", cfg.Registry.File, cfg.Registry.Watch)
	}
	if cfg.Registry.SQLitePath != "" {
		fmt.Printf("  Record store:   %s\n", cfg.Registry.SQLitePath)
	}
	return nil
}
