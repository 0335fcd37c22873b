package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"payments/internal/app"
	"payments/internal/config"
	"payments/internal/domain"
	"payments/internal/handler"
	internalRedis "payments/internal/redis"
	"payments/internal/repository/postgres"
	"payments/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	bus := internalRedis.NewStreamBus(redisClient, cfg.Consumer)
	paymentRepo := postgres.NewPaymentRepository(db)
	gateway := service.NewMockGateway()
	breaker := service.NewCircuitBreaker(cfg.Breaker)
	paymentService := service.NewPaymentService(paymentRepo, bus, gateway, breaker)

	// Explicit subscription registration: topic name to handler function.
	bus.Subscribe(domain.TopicBookingCreated, paymentService.HandleBookingCreated)
	bus.Subscribe(domain.TopicCancellationRequested, paymentService.HandleRefundRequest)

	if err := bus.Start(ctx); err != nil {
		log.Fatalf("failed to start event consumer: %v", err)
	}
	log.Printf("Consuming events as group %s", cfg.Consumer.Group)

	paymentHandler := handler.NewPaymentHandler(paymentService)
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler: paymentHandler,
		NewRelicApp:    nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown: stop consuming before closing the HTTP listener so
	// in-flight events finish and get acknowledged.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	bus.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
