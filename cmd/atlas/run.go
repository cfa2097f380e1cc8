package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/credentials"
	"tilehub/atlas/pkg/maintenance"
	"tilehub/atlas/pkg/ratelimit"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/server"
	"tilehub/atlas/pkg/telemetry/logging"
	"tilehub/atlas/pkg/telemetry/metrics"
	"tilehub/atlas/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Atlas proxy server",
	Long: `Start the Atlas proxy server with the specified configuration.

The server listens on the configured address and serves rewritten style
documents, proxied tiles and references, the style converter, health, and
metrics.

Examples:
  # Start with default config
  atlas run

  # Start with custom config
  atlas run --config /etc/atlas/config.yaml

  # Override listen address
  atlas run --listen 0.0.0.0:8090

  # Validate config without starting the server
  atlas run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Atlas v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Credentials first: the redactor needs the secret values so none of
	// them can reach a log line.
	creds := credentials.NewStore(cfg.Credentials)
	redactor := logging.NewRedactor().WithSecrets(creds.SecretValues())
	upstreamClient := upstream.NewClient(cfg.Upstream, redactor)

	reg, err := registry.NewFromConfig(cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to build style registry: %w", err)
	}

	if cfg.Registry.SQLitePath != "" {
		store, err := registry.OpenSQLiteStore(cfg.Registry.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open style record store: %w", err)
		}
		mergeErr := reg.MergeFromStore(cmd.Context(), store)
		store.Close()
		if mergeErr != nil {
			return fmt.Errorf("failed to load styles from record store: %w", mergeErr)
		}
	}
	fmt.Printf("✓ Style registry loaded (%d styles)\n", reg.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Registry.Watch && cfg.Registry.File != "" {
		watcher, err := registry.NewFileWatcher(cfg.Registry.File, func() error {
			descriptors, err := registry.LoadDescriptors(cfg.Registry)
			if err != nil {
				return err
			}
			reg.Replace(descriptors)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to watch styles file: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil && err != context.Canceled {
				slog.Error("styles watcher stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Watching styles file: %s\n", cfg.Registry.File)
	}

	byteCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.CleanupInterval)
	defer byteCache.Close()

	var limiter *ratelimit.ClientLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewClientLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	if cfg.Maintenance.Schedule != "" {
		scheduler, err := maintenance.NewScheduler(cfg.Maintenance.Schedule, byteCache, limiter)
		if err != nil {
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := server.NewServer(cfg, server.Components{
		Registry:    reg,
		Credentials: creds,
		Cache:       byteCache,
		Limiter:     limiter,
		Upstream:    upstreamClient,
		Metrics:     collector,
	})

	fmt.Printf("✓ Server listening on %s\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Proxy.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Proxy.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}
