package main

import (
	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/internal/handlers"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg         *config.Config
	api         *upstream.Client
	eventHub    *services.EventHub
	taskQueue   services.TaskQueue
	worker      *services.Worker
	authLimiter *middleware.RateLimiter
	verifier    *services.TokenVerifier

	authHandler       *handlers.AuthHandler
	projectHandler    *handlers.ProjectHandler
	memberHandler     *handlers.MemberHandler
	taskHandler       *handlers.TaskHandler
	taskDetailHandler *handlers.TaskDetailHandler
	userHandler       *handlers.UserHandler
	sseHandler        *handlers.SSEHandler
	systemLogHandler  *handlers.SystemLogHandler
	healthHandler     *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, upstream
// client, queue, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	// Operational store: system logs and settings
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitSystemLogger(db)
	services.StartLogCleanupScheduler(db)

	api := upstream.NewClient(cfg.Upstream)
	logger.Info().Str("base_url", api.BaseURL()).Msg("Task API client ready")
	if cfg.Auth.TokenSecret == "" {
		logger.Info().Msg("No token secret configured; tokens for local routes are confirmed with the task API")
	}
	if len(cfg.Auth.Admins) == 0 {
		logger.Warn().Msg("No admins configured; system log routes will refuse every caller")
	}

	// Assignment notifications go through Redis when enabled, otherwise a
	// goroutine in this process runs them.
	notifier := services.NewNotificationService(cfg.Notify)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notifier.SendAssignmentNotification)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notifier.SendAssignmentNotification)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start notification worker")
			}
		}
	}

	eventHub := services.GetEventHub()
	saves := services.NewSaveRegistry()

	projectService := services.NewProjectService(api)
	memberService := services.NewMemberService(api)
	taskService := services.NewTaskService(api, eventHub)
	detailService := services.NewTaskDetailService(api, eventHub, taskQueue, saves, cfg.Upstream.MaxConcurrentCalls)

	return &appServices{
		cfg:         cfg,
		api:         api,
		eventHub:    eventHub,
		taskQueue:   taskQueue,
		worker:      worker,
		authLimiter: middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst),
		verifier:    services.NewTokenVerifier(api, cfg.Auth),

		authHandler:       handlers.NewAuthHandler(services.NewAuthService(api)),
		projectHandler:    handlers.NewProjectHandler(projectService, memberService, taskService),
		memberHandler:     handlers.NewMemberHandler(memberService),
		taskHandler:       handlers.NewTaskHandler(taskService),
		taskDetailHandler: handlers.NewTaskDetailHandler(detailService),
		userHandler:       handlers.NewUserHandler(services.NewUserService(api)),
		sseHandler:        handlers.NewSSEHandler(eventHub),
		systemLogHandler:  handlers.NewSystemLogHandler(services.NewSystemLogService(db)),
		healthHandler:     handlers.NewHealthHandler(db, api, eventHub, taskQueue, saves),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	services.StopLogCleanupScheduler()
	s.authLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
