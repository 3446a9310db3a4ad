package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/gateway"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/healthcheck"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/lock"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/media"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/objstore"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/observer"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/poller"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/storage"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/usecase"
	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/webhook"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting WA campaign bridge",
		zap.String("environment", cfg.Environment),
		zap.String("org_id", cfg.Organization.ID),
		zap.String("gateway_url", cfg.Gateway.BaseURL),
	)

	// Initialize repositories
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	instanceRepo := storage.NewInstanceRepoAdapter(postgresRepo)
	contactRepo := storage.NewContactRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)

	// External clients
	gatewayClient := gateway.NewHTTPClient(cfg.Gateway)
	storeClient := objstore.NewHTTPClient(cfg.Storage)
	mediaPipeline := media.NewPipeline(gatewayClient, storeClient, cfg.Storage.Bucket)

	// Single-flight guard for reconciliation; redis when configured, an
	// in-process guard otherwise.
	var guard lock.Guard
	if cfg.Redis.Addr != "" {
		redisGuard, err := lock.NewRedisGuard(context.Background(), cfg.Redis, "wa-campaign-bridge")
		if err != nil {
			logger.Log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisGuard.Close()
		guard = redisGuard
	} else {
		logger.Log.Warn("Redis not configured, using in-process reconcile guard")
		guard = lock.NewLocalGuard()
	}

	// Services
	ingestService := usecase.NewIngestService(instanceRepo, contactRepo, messageRepo, gatewayClient, mediaPipeline)
	campaignService := usecase.NewCampaignService(campaignRepo, instanceRepo, gatewayClient, cfg.Campaign.DelayMinSeconds, cfg.Campaign.DelayMaxSeconds)
	reconciler := usecase.NewReconciler(campaignRepo, instanceRepo, gatewayClient)

	reconcilePoller, err := poller.New(reconciler, guard, cfg.Organization.ID, cfg.Poller)
	if err != nil {
		logger.Log.Fatal("Failed to create reconciliation poller", zap.Error(err))
	}

	// HTTP surfaces
	handler := webhook.NewHandler(ingestService, campaignService, cfg.Organization.ID)
	server := webhook.NewServer(cfg.Server.Port, handler, cfg.Organization.ID, cfg.Environment)

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log, nil)
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
	}
	healthServer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconcilePoller.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Log.Error("Webhook server failed", zap.Error(err))
		}
	}

	cancel()
	reconcilePoller.Stop()
	ingestService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("Webhook server shutdown error", zap.Error(err))
	}
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Log.Warn("Health server shutdown error", zap.Error(err))
	}
	if err := postgresRepo.Close(shutdownCtx); err != nil {
		logger.Log.Warn("Database close error", zap.Error(err))
	}

	logger.Log.Info("Shutdown complete")
}
