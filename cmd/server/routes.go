package main

import (
	"github.com/gin-gonic/gin"

	"github.com/outreachforge/backend/internal/handlers"
	"github.com/outreachforge/backend/internal/middleware"
	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// Login attempts are rate limited per IP
	authLimiter := middleware.NewRateLimiter(5, 10)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		// SSE events (public route with internal token validation)
		sseHandler := handlers.NewSSEHandler(services.GetBatchHub())
		api.GET("/events", sseHandler.StreamBatchEvents)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Leads
			leadHandler := handlers.NewLeadHandler(models.GetDB())
			protected.GET("/leads", leadHandler.List)
			protected.GET("/leads/:id", leadHandler.Get)
			protected.POST("/leads", leadHandler.Create)
			protected.PUT("/leads/:id", leadHandler.Update)
			protected.DELETE("/leads/:id", leadHandler.Delete)

			// Prompt templates
			promptHandler := handlers.NewPromptHandler(models.GetDB())
			protected.GET("/prompts", promptHandler.List)
			protected.GET("/prompts/:id", promptHandler.Get)
			protected.POST("/prompts", promptHandler.Create)
			protected.PUT("/prompts/:id", promptHandler.Update)
			protected.POST("/prompts/:id/activate", promptHandler.Activate)
			protected.DELETE("/prompts/:id", promptHandler.Delete)

			// Outreach batches and records
			protected.POST("/outreach/batches", svc.outreachHandler.StartBatch)
			protected.GET("/outreach/batches", svc.outreachHandler.ListBatches)
			protected.GET("/outreach/batches/:batch_id", svc.outreachHandler.GetBatch)
			protected.GET("/outreach/records", svc.outreachHandler.ListRecords)
			protected.GET("/outreach/records/:lead_id", svc.outreachHandler.GetRecord)

			// AI usage statistics
			aiUsageHandler := handlers.NewAIUsageHandler(models.GetDB())
			protected.GET("/ai-usage/stats", aiUsageHandler.GetStats)
			protected.GET("/ai-usage/trend", aiUsageHandler.GetDailyTrend)
			protected.GET("/ai-usage/providers", aiUsageHandler.GetProviderBreakdown)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// System logs
			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)

			// System config
			systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB())
			admin.GET("/system-configs", systemConfigHandler.GetByGroup)
			admin.PUT("/system-configs", systemConfigHandler.Set)
		}
	}
}
