package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/api"
	"github.com/kromio/kromio-server/internal/api/handler"
	"github.com/kromio/kromio-server/internal/database"
	"github.com/kromio/kromio-server/internal/gateway"
	"github.com/kromio/kromio-server/internal/pkg/cron"
	"github.com/kromio/kromio-server/internal/pkg/email"
	"github.com/kromio/kromio-server/internal/pkg/oauth"
	"github.com/kromio/kromio-server/internal/pkg/pubsub"
	"github.com/kromio/kromio-server/internal/pkg/ratelimit"
	"github.com/kromio/kromio-server/internal/pkg/ws"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/service"
)

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
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	// Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	changeRepo := repository.NewPlanChangeRepository(db)
	supportRepo := repository.NewSupportRepository(db)
	welcomeRepo := repository.NewWelcomeRepository(db)

	// Accounting gateway, rate limiter, balance event publisher
	acct := gateway.NewProcGateway(db)
	limiter := ratelimit.NewWindow(cfg.Tokens.RateLimitPerMinute, time.Minute)
	publisher := pubsub.NewPublisher(rdb)

	// Mailer
	mailer := email.NewService(&cfg.Email)

	// Services
	tokenService := service.NewTokenService(acct, limiter, publisher, cfg)
	planService := service.NewPlanService(tokenService, userRepo, subRepo, changeRepo, cfg)
	authService := service.NewAuthService(userRepo, mailer, oauth.NewStateStore(rdb), cfg)
	adminService := service.NewAdminService(userRepo, subRepo, changeRepo, supportRepo, tokenService)
	supportService := service.NewSupportService(supportRepo)
	emailService := service.NewEmailService(welcomeRepo, mailer)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	tokenHandler := handler.NewTokenHandler(tokenService)
	planHandler := handler.NewPlanHandler(planService)
	supportHandler := handler.NewSupportHandler(supportService)
	emailHandler := handler.NewEmailHandler(emailService)
	adminHandler := handler.NewAdminHandler(adminService, supportService)
	healthHandler := handler.NewHealthHandler(tokenService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// Forward balance events from redis to connected websocket clients.
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(event *pubsub.BalanceEvent) {
			_ = wsHub.SendToUser(event.UserID, &ws.Message{
				Type: event.Type,
				Data: event,
			})
		})
		if err != nil {
			log.Printf("Balance event subscription stopped: %v", err)
		}
	}()

	// Background jobs
	cronService := cron.NewService(planService, subRepo, limiter)
	cronService.Start()
	defer cronService.Stop()

	// Router
	router := api.NewRouter(
		authHandler,
		tokenHandler,
		planHandler,
		supportHandler,
		emailHandler,
		adminHandler,
		healthHandler,
		websocketHandler,
		userRepo,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
