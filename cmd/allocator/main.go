package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/database"
	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/pkg/pubsub"
	"github.com/kromio/kromio-server/internal/pkg/ratelimit"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/service"
)

// The allocator runs the monthly token top-up as a one-shot batch.
// Schedule it from the host (cron/systemd timer) on the first of the month.
func main() {
	// Load config
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// Redis (balance events for connected clients)
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// Repositories and services
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	changeRepo := repository.NewPlanChangeRepository(db)

	acct := gateway.NewProcGateway(db)
	limiter := ratelimit.NewWindow(cfg.Tokens.RateLimitPerMinute, time.Minute)
	publisher := pubsub.NewPublisher(rdb)

	tokenService := service.NewTokenService(acct, limiter, publisher, cfg)
	planService := service.NewPlanService(tokenService, userRepo, subRepo, changeRepo, cfg)

	// Cancel on SIGINT/SIGTERM so a partial batch stops cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Println("Monthly token allocation starting...")

	result, err := planService.AllocateMonthlyTokens(ctx, nil)
	if err != nil {
		log.Fatalf("Allocation failed: %v", err)
	}

	log.Printf("Allocation complete: processed=%d credited=%d skipped=%d errors=%d",
		result.Processed, result.Credited, result.Skipped, len(result.Errors))
	for _, e := range result.Errors {
		log.Printf("Allocation error: %s", e)
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
