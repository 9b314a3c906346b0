package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/example/realtime-relay/config"
	"github.com/example/realtime-relay/modules/api"
	"github.com/example/realtime-relay/modules/metrics"
	"github.com/example/realtime-relay/modules/relay"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the HTTP and WebSocket server.

Settings come from the YAML file given with --config, or from defaults when
none is given. PORT, ALLOWED_ORIGINS and LOG_LEVEL override either. With a
config file, allowed origins and relay rules are reloaded when it changes.

Examples:
  relay serve
  relay serve --config relay.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Println("=== Real-time Relay - Fiber + WebSocket ===")

	level := mono.LogLevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = mono.LogLevelDebug
	case "warn":
		level = mono.LogLevelWarn
	case "error":
		level = mono.LogLevelError
	}
	format := mono.LogFormatText
	if strings.EqualFold(cfg.Log.Format, "json") {
		format = mono.LogFormatJSON
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(format),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	logger := app.Logger()

	relayModule := relay.NewModule(hubConfig(cfg), logger.WithModule("relay"))
	apiModule := api.NewModule(cfg, api.Info{Service: serviceName, Version: version}, logger.WithModule("api"))

	// The hub is handed over directly: connections are not serializable
	// requests, so they cannot travel through the service container.
	apiModule.SetHub(relayModule.Hub())

	var metricsModule *metrics.Module
	if cfg.Metrics.Enabled {
		metricsModule = metrics.NewModule(logger.WithModule("metrics"), metrics.WithNamespace(cfg.Metrics.Namespace))
		relayModule.Hub().SetObserver(metricsModule)
		apiModule.SetMetricsHandler(metricsModule.Handler())
	}

	// Register modules with the framework.
	// Order: emitters first, then consumers, then driving adapters
	// - relay: hub owner (ServiceProviderModule + EventEmitterModule)
	// - metrics: consumes relay lifecycle events
	// - api: Fiber HTTP/WebSocket server, depends on relay
	if err := app.Register(relayModule); err != nil {
		return fmt.Errorf("failed to register relay module: %w", err)
	}
	if metricsModule != nil {
		if err := app.Register(metricsModule); err != nil {
			return fmt.Errorf("failed to register metrics module: %w", err)
		}
	}
	if err := app.Register(apiModule); err != nil {
		return fmt.Errorf("failed to register api module: %w", err)
	}

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	if configPath != "" {
		go func() {
			err := config.Watch(watchCtx, configPath, logger.WithModule("config"), func(next *config.Config) {
				apiModule.SetAllowedOrigins(next.Server.AllowedOrigins)
				if err := relayModule.Hub().SetRules(next.Relay.Rules); err != nil {
					logger.Warn("Failed to apply relay rules", "error", err)
				}
			})
			if err != nil {
				logger.Error("Config watcher stopped", "error", err)
			}
		}()
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"config-watch": func(_ context.Context) error {
				stopWatch()
				return nil
			},
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

func hubConfig(cfg *config.Config) relay.HubConfig {
	return relay.HubConfig{
		SendBuffer: cfg.Relay.SendBuffer,
		WriteWait:  cfg.Relay.WriteWait,
		PingPeriod: cfg.Relay.PingPeriod(),
		RatePerSec: cfg.Relay.RateLimit.PerSecond,
		RateBurst:  cfg.Relay.RateLimit.Burst,
		Rules:      cfg.Relay.Rules,
	}
}

func printStartupInfo(cfg *config.Config) {
	port := cfg.Server.Port

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Allowed origins: %s", strings.Join(cfg.Server.AllowedOrigins, ", "))
	log.Println("Relay rules:")
	for _, rule := range cfg.Relay.Rules {
		log.Printf("  %s:updated -> %s:<%s>", rule.Domain, rule.RoomKind, rule.ScopeField)
	}
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /          - Service status")
	log.Println("  GET    /health    - Health check")
	log.Println("  POST   /emit      - Emit an event {event, data, room}")
	if cfg.Metrics.Enabled {
		log.Printf("  GET    %-10s - Prometheus metrics", cfg.Metrics.Path)
	}
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Client events: authenticate, join:<kind>, leave:<kind>, <domain>:updated, ping")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
