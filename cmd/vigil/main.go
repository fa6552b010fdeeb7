package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/auth"
	"github.com/HerbHall/vigil/internal/config"
	"github.com/HerbHall/vigil/internal/device"
	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/internal/notify"
	"github.com/HerbHall/vigil/internal/server"
	"github.com/HerbHall/vigil/internal/store"
	"github.com/HerbHall/vigil/internal/version"
	"github.com/HerbHall/vigil/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
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

	logger.Info("Vigil server starting", zap.String("version", version.Short()))

	if f := cfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	// Open database and run migrations.
	dbPath := cfg.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx, "device", device.Migrations()); err != nil {
		logger.Fatal("device migrations failed", zap.Error(err))
	}
	if err := db.Migrate(ctx, "notify", notify.Migrations()); err != nil {
		logger.Fatal("notify migrations failed", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("path", dbPath))

	bus := event.NewBus(logger.Named("event"))

	// Auth: JWT for the probe agent and dashboard sessions.
	secret := cfg.GetString("auth.token_secret")
	if secret == "" {
		// Ephemeral secret -- tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate token secret", zap.Error(err))
		}
		secret = hex.EncodeToString(b)
		logger.Info("using auto-generated token secret (set auth.token_secret in config to persist sessions across restarts)")
	}
	tokenTTL := cfg.GetDuration("auth.token_ttl")
	if tokenTTL == 0 {
		tokenTTL = time.Hour
	}
	tokens := auth.NewTokenService([]byte(secret), tokenTTL)
	authHandler := auth.NewHandler(tokens,
		cfg.GetString("auth.api_key_hash"),
		cfg.GetString("auth.dashboard_key_hash"),
		logger.Named("auth"))

	// Device inventory and ingest.
	deviceStore := device.NewStore(db.DB())
	deviceHandler := device.NewHandler(deviceStore, bus, logger.Named("device"))
	ingestHandler := device.NewIngestHandler(deviceStore, bus, tokens, logger.Named("ingest"))

	// WebSocket push layer. Its hub doubles as the pipeline's
	// page-visibility source. Dashboards authenticate only when a dashboard
	// key is configured; otherwise the stream is open so local setups still
	// get foreground delivery.
	var wsTokens *auth.TokenService
	if cfg.GetString("auth.dashboard_key_hash") != "" {
		wsTokens = tokens
	}
	wsHandler := ws.NewHandler(wsTokens, bus, logger.Named("ws"))

	// Notification pipeline.
	pipelineCfg := notify.PipelineConfig{
		UserID:              cfg.GetString("notify.user"),
		GroupWindow:         cfg.GetDuration("notify.group_window"),
		SoundStagger:        cfg.GetDuration("notify.sound_stagger"),
		NativeCloseAfter:    cfg.GetDuration("notify.native_close_after"),
		RecurringCloseAfter: cfg.GetDuration("notify.recurring_close_after"),
	}
	pipeline := notify.NewPipeline(pipelineCfg, notify.NewClock(), bus,
		notify.NewPrefsStore(db.DB()), logger.Named("notify"))
	pipeline.SetVisibility(wsHandler.Hub().AnyVisible)
	if err := pipeline.Start(ctx, deviceStore); err != nil {
		logger.Fatal("failed to start notification pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	notifyHandler := notify.NewHandler(pipeline, logger.Named("notify"))

	// HTTP server.
	addr := fmt.Sprintf("%s:%d", cfg.GetString("server.host"), cfg.GetInt("server.port"))
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, logger.Named("server"), readyCheck,
		authHandler, deviceHandler, ingestHandler, notifyHandler, wsHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("Vigil server ready", zap.String("addr", addr))

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("Vigil server stopped")
}
