package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/config"
	"github.com/HerbHall/vigil/internal/probe"
	"github.com/HerbHall/vigil/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	serverURL := flag.String("server", "", "Vigil server URL (overrides probe.server_url)")
	apiKey := flag.String("api-key", "", "agent API key (overrides VIGIL_PROBE_API_KEY)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	agentCfg := probe.Config{
		ServerURL:   cfg.GetString("probe.server_url"),
		APIKey:      cfg.GetString("probe.api_key"),
		Interval:    cfg.GetDuration("probe.interval"),
		PingTimeout: cfg.GetDuration("probe.ping_timeout"),
		PingCount:   cfg.GetInt("probe.ping_count"),
		Concurrency: cfg.GetInt("probe.concurrency"),
	}
	if *serverURL != "" {
		agentCfg.ServerURL = *serverURL
	}
	if *apiKey != "" {
		agentCfg.APIKey = *apiKey
	}

	logger.Info("Vigil probe agent starting",
		zap.String("version", version.Short()),
		zap.String("server", agentCfg.ServerURL),
		zap.Duration("interval", agentCfg.Interval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	agent := probe.NewAgent(agentCfg, logger)
	if err := agent.Run(ctx); err != nil {
		logger.Fatal("agent error", zap.Error(err))
	}

	logger.Info("probe agent stopped")
}
