package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/grpc"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/monitor"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/queue"
	"github.com/soltixdb/tsinsight/internal/router"
	"github.com/soltixdb/tsinsight/internal/services"
	"github.com/soltixdb/tsinsight/internal/subscriber"
	"github.com/soltixdb/tsinsight/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Insight service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	store, err := profiles.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open profile store", "backend", cfg.Profiles.Backend, "error", err)
	}
	defer func() { _ = store.Close() }()
	logger.Info("Profile store ready", "backend", cfg.Profiles.Backend)

	registry := monitor.NewRegistry(services.AnomalyConfig(cfg.Analytics.Anomaly), cfg.Monitor.MaxSeries)
	analyticsService := services.NewAnalyticsService(logger, cfg.Analytics, store, registry)
	profileService := services.NewProfileService(logger, store)

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon, err = startMonitor(ctx, cfg, logger, registry)
		if err != nil {
			logger.Fatal("Failed to start monitor", "error", err)
		}
	}

	app := router.New(logger, cfg, analyticsService, profileService)
	go func() {
		addr := cfg.Server.HTTPAddress()
		logger.Info("HTTP server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	grpcServer := grpc.NewAnalyticsServer(cfg.Server.GRPCAddress(), logger, analyticsService)
	grpcDone := make(chan struct{})
	go func() {
		defer close(grpcDone)
		if err := grpcServer.Start(ctx); err != nil {
			logger.Fatal("Failed to start gRPC server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if mon != nil {
		if err := mon.Stop(); err != nil {
			logger.Warn("Failed to stop monitor", "error", err)
		}
	}

	cancel()
	<-grpcDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// startMonitor connects the queue in both directions and starts consuming
// observations. The connections are closed when ctx is done.
func startMonitor(ctx context.Context, cfg *config.Config, logger *logging.Logger, registry *monitor.Registry) (*monitor.Monitor, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Queue.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	logger.Info("Connecting to Queue", "type", queueType, "url", cfg.Queue.URL)
	pub, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to connect publisher: %w", err)
	}

	hostname, _ := os.Hostname()
	subCfg := subscriber.DefaultConfig()
	subCfg.NodeID = hostname
	if cfg.Monitor.ConsumerGroup != "" {
		subCfg.ConsumerGroup = cfg.Monitor.ConsumerGroup
	}

	sub, err := subscriber.NewSubscriber(cfg.Queue, subCfg)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("failed to connect subscriber: %w", err)
	}

	mon, err := monitor.New(logger, cfg.Monitor, registry, sub, pub, queueType)
	if err == nil {
		err = mon.Start(ctx)
	}
	if err != nil {
		_ = sub.Close()
		_ = pub.Close()
		return nil, err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
		_ = pub.Close()
	}()
	return mon, nil
}
