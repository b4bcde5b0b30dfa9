package main

import (
	"context"

	"github.com/outreachforge/backend/internal/config"
	"github.com/outreachforge/backend/internal/handlers"
	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/internal/utils"
	"github.com/outreachforge/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	aiService       *services.AIService
	outreachService *services.OutreachService
	scheduler       *services.Scheduler
	taskQueue       services.TaskQueue
	worker          *services.Worker
	authHandler     *handlers.AuthHandler
	outreachHandler *handlers.OutreachHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed system templates and default configs
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Wire the AI invocation layer and the orchestration loop
	aiService := services.NewAIService(models.GetDB(), cfg)
	promptService := services.NewPromptService(models.GetDB())
	outreachService := services.NewOutreachService(models.GetDB(), aiService, promptService, services.GetBatchHub())

	// Maintenance scheduler: retention cleanup and failed-lead retry
	scheduler := services.NewScheduler(models.GetDB(), cfg, outreachService)
	if err := scheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start scheduler")
	}

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	processBatch := func(ctx context.Context, task *services.OutreachTask) error {
		_, err := outreachService.GenerateBatch(ctx, task.Options)
		return err
	}
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processBatch)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processBatch)
			worker.Start()
		}
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		aiService:       aiService,
		outreachService: outreachService,
		scheduler:       scheduler,
		taskQueue:       taskQueue,
		worker:          worker,
		authHandler:     authHandler,
		outreachHandler: handlers.NewOutreachHandler(outreachService),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
