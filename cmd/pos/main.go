package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/pdv/internal/pos/auth"
	"github.com/gartstein/pdv/internal/pos/config"
	"github.com/gartstein/pdv/internal/pos/controller"
	gorm "github.com/gartstein/pdv/internal/pos/db"
	"github.com/gartstein/pdv/internal/pos/events"
	"github.com/gartstein/pdv/internal/pos/handlers"
	"github.com/gartstein/pdv/internal/pos/sale"
	"github.com/gartstein/pdv/internal/pos/telemetry"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	shutdownTelemetry, err := telemetry.Setup(context.Background(), "pos-service", cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Error("failed to flush telemetry", zap.Error(err))
		}
	}()

	repo, err := gorm.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	posSvc := controller.NewPOSService(
		repo,
		tenant.NewRegistry(repo, repo, logger),
		sale.NewSubmitter(repo, logger),
		producer,
		logger,
	)
	posHandler := handlers.NewPOSHandler(posSvc, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(posHandler)
	if err := server.RegisterHTTPGateway(posHandler, cfg.JWTSecret); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
