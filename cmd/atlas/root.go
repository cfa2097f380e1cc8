package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas - credential-guarding map style and tile proxy",
	Long: `Atlas proxies map style documents and tiles from commercial providers
(MapTiler, Mapbox, Stadia, ESRI) to browser map clients.

It rewrites upstream style documents so every tile template, sprite, and
glyph reference points back at this service, injects provider API keys only
on upstream requests, caches tiles and styles in memory, and rate-limits
clients. Secrets never appear in a client-facing response.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
