package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gjovs/serverkit/internal/cache/backend"
	"github.com/gjovs/serverkit/internal/consumer"
	"github.com/gjovs/serverkit/internal/consumer/mqtt"
	"github.com/gjovs/serverkit/internal/httpserver"
	"github.com/gjovs/serverkit/internal/wsserver"
	"github.com/gjovs/serverkit/pkg/config"
	"github.com/gjovs/serverkit/pkg/logging"

	// Handler modules register themselves into the route and event
	// tables; the directory loaders below pick them up.
	_ "github.com/gjovs/serverkit/internal/events"
	_ "github.com/gjovs/serverkit/internal/routes"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting serverkit",
		zap.String("version", version),
		zap.String("build_time", buildTime),
	)

	// Initialize cache backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, &cfg.Cache)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize cache backend", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	logger.Info("Cache backend initialized", zap.String("type", cfg.Cache.Type))

	// HTTP server
	srv := httpserver.New(cfg, logger)
	srv.OnStartup(func(ctx context.Context) error {
		return store.Ping(ctx)
	})

	if cfg.Server.RoutesDir != "" {
		if err := srv.RoutesDirectory(cfg.Server.RoutesDir); err != nil {
			logger.Fatal("Failed to load routes directory", zap.Error(err))
		}
		logger.Info("Routes directory loaded", zap.String("dir", cfg.Server.RoutesDir))
	}

	// WebSocket server
	if cfg.WebSocket.Enabled {
		ws := wsserver.New(srv, cfg, logger)
		if cfg.WebSocket.EventsDir != "" {
			if err := ws.EventsDirectory(cfg.WebSocket.EventsDir); err != nil {
				logger.Fatal("Failed to load events directory", zap.Error(err))
			}
			logger.Info("Events directory loaded", zap.String("dir", cfg.WebSocket.EventsDir))
		}
	}

	// Queue consumers
	var queueServer *mqtt.Server
	if cfg.Queue.Enabled {
		queueServer, err = mqtt.NewServer(&cfg.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect to queue broker", zap.Error(err))
		}
		defer queueServer.Close()

		if err := consumer.Setup(queueServer, consumers(store, logger), logger); err != nil {
			logger.Fatal("Failed to register consumers", zap.Error(err))
		}
	}

	if err := srv.ListenAsync(context.Background(), cfg.Server.Port, func() {
		logger.Info("Server started", zap.String("address", cfg.Server.Address()))
	}); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
