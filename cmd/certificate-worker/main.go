package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/repository"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/service"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/worker"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/config"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/database"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/logger"
	pkgredis "github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "certificate-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Certificate Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      10,
		MinConns:      2,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Redis connection
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      20,
		MinIdleConns:  5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize Kafka event publisher. The certificate.issued event
	// carries the email notification downstream.
	var eventPublisher service.EventPublisher
	eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ServiceName: "certificate-worker",
		ClientID:    "certificate-worker",
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Wire the booking service
	pool := db.Pool()
	bookingService := service.NewBookingService(
		repository.NewPostgresBookingRepository(pool),
		repository.NewPostgresEventRepository(pool),
		repository.NewPostgresCertificateRepository(pool),
		repository.NewRedisAvailabilityCache(redisClient, 0),
		eventPublisher,
		&service.BookingServiceConfig{PromoteBatchSize: cfg.Booking.SweepBatchSize},
	)

	// Start the worker
	certWorker := worker.NewCertificateWorker(bookingService, &worker.CertificateWorkerConfig{
		ScanInterval: cfg.Booking.CertificateSweepInterval,
		BatchSize:    cfg.Booking.SweepBatchSize,
	})
	if err := certWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start worker: %v", err))
	}

	appLog.Info("Certificate Worker running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down...")
	certWorker.Stop()
	appLog.Info("Certificate Worker exited")
}
