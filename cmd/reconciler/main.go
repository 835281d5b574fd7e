package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/metrics"
	"github.com/Basantgrg924/QueueSystem/internal/repository"
	"github.com/Basantgrg924/QueueSystem/internal/service"
	"github.com/Basantgrg924/QueueSystem/internal/worker"
	"github.com/Basantgrg924/QueueSystem/pkg/config"
	"github.com/Basantgrg924/QueueSystem/pkg/database"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "queue-reconciler",
		Development: !cfg.IsProduction(),
	}
	appLog, err := logger.Init(logCfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("Starting queue reconciler...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "queue-reconciler",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize metrics
	m, err := metrics.New()
	if err != nil {
		appLog.Warn("Failed to create metric instruments", zap.Error(err))
	}

	// Wire the reconciliation worker
	queueRepo := repository.NewPostgresQueueRepository(db.Pool())
	occupancy := service.NewOccupancyService(queueRepo, m)
	reconcileWorker := worker.NewReconcileWorker(occupancy, &worker.ReconcileWorkerConfig{
		Interval: cfg.Reconcile.Interval,
	})

	if err := reconcileWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start worker: %v", err))
	}

	appLog.Info("Queue reconciler started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down reconciler...")
	reconcileWorker.Stop()
	cancel()

	appLog.Info("Reconciler exited gracefully")
}
