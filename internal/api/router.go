package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/api/handler"
	"github.com/kromio/kromio-server/internal/api/middleware"
	"github.com/kromio/kromio-server/internal/repository"
)

type Router struct {
	authHandler      *handler.AuthHandler
	tokenHandler     *handler.TokenHandler
	planHandler      *handler.PlanHandler
	supportHandler   *handler.SupportHandler
	emailHandler     *handler.EmailHandler
	adminHandler     *handler.AdminHandler
	healthHandler    *handler.HealthHandler
	websocketHandler *handler.WebSocketHandler
	userRepo         *repository.UserRepository
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	tokenHandler *handler.TokenHandler,
	planHandler *handler.PlanHandler,
	supportHandler *handler.SupportHandler,
	emailHandler *handler.EmailHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
	websocketHandler *handler.WebSocketHandler,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		tokenHandler:     tokenHandler,
		planHandler:      planHandler,
		supportHandler:   supportHandler,
		emailHandler:     emailHandler,
		adminHandler:     adminHandler,
		healthHandler:    healthHandler,
		websocketHandler: websocketHandler,
		userRepo:         userRepo,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// Public - health probe
		api.GET("/health", r.healthHandler.Check)

		// Public - auth
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// Public - pricing page catalog
		api.GET("/plans", r.planHandler.List)

		// Authenticated
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// User
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.authHandler.GetProfile)
				user.GET("/plan", r.planHandler.GetMine)
			}

			// Tokens
			tokens := authenticated.Group("/tokens")
			{
				tokens.GET("/balance", r.tokenHandler.GetBalance)
				tokens.GET("/history", r.tokenHandler.GetHistory)
				tokens.POST("/deduct", r.tokenHandler.Deduct)
				tokens.POST("/validate", r.tokenHandler.Validate)
			}

			// Plans
			plans := authenticated.Group("/plans")
			{
				plans.POST("/can-perform", r.planHandler.CanPerform)
				plans.POST("/upgrade", r.planHandler.Upgrade)
			}

			// Support
			support := authenticated.Group("/support")
			{
				support.POST("", r.supportHandler.Create)
				support.GET("", r.supportHandler.ListMine)
			}

			// Transactional email
			authenticated.POST("/emails/welcome", r.emailHandler.SendWelcome)
		}

		// Admin
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret))
		admin.Use(middleware.AdminOnly(r.userRepo))
		{
			admin.GET("/users", r.adminHandler.ListUsers)
			admin.PUT("/users/:id/admin", r.adminHandler.SetAdmin)
			admin.POST("/users/:id/tokens", r.adminHandler.GrantTokens)
			admin.GET("/users/:id/history", r.adminHandler.GetUserHistory)
			admin.GET("/analytics", r.adminHandler.GetAnalytics)
			admin.GET("/support", r.adminHandler.ListSupport)
			admin.PUT("/support/:id/resolve", r.adminHandler.ResolveSupport)
		}
	}

	return engine
}
