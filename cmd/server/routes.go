package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins...))

	r.GET("/health", svc.healthHandler.Check)
	r.GET("/health/detail", svc.healthHandler.CheckDetail)

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", svc.authLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/signup", svc.authHandler.Signup)
		}

		// Routes answered from taskdesk's own data: the token is verified
		// here because no upstream call will check it.
		api.GET("/events/tasks", middleware.VerifiedCredential(svc.verifier, true), svc.sseHandler.StreamTaskEvents)

		admin := api.Group("/system-logs")
		admin.Use(middleware.VerifiedCredential(svc.verifier, false), middleware.AdminRequired(svc.cfg.Auth.Admins), middleware.AuditLog())
		{
			admin.GET("", svc.systemLogHandler.List)
			admin.GET("/modules", svc.systemLogHandler.GetModules)
			admin.GET("/retention", svc.systemLogHandler.GetRetention)
			admin.PUT("/retention", svc.systemLogHandler.SetRetention)
			admin.POST("/cleanup", svc.systemLogHandler.Cleanup)
		}

		protected := api.Group("")
		protected.Use(middleware.CredentialRequired(), middleware.AuditLog())
		{
			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/stats", svc.projectHandler.Stats)
			protected.GET("/projects/:id/detail", svc.projectHandler.Detail)
			protected.GET("/projects/:id/members", svc.projectHandler.Members)
			protected.GET("/projects/:id/member-candidates", svc.projectHandler.MemberCandidates)
			protected.GET("/projects/:id/tasks", svc.projectHandler.Tasks)

			// Members
			protected.POST("/project-members", svc.memberHandler.Add)
			protected.PUT("/project-members/:id/role", svc.memberHandler.UpdateRole)
			protected.DELETE("/project-members/:id", svc.memberHandler.Remove)

			// Tasks
			protected.POST("/tasks", svc.taskHandler.Create)
			protected.GET("/tasks/by-status", svc.taskHandler.ListByStatus)
			protected.GET("/tasks/:id", svc.taskHandler.GetByID)
			protected.DELETE("/tasks/:id", svc.taskHandler.Delete)
			protected.PATCH("/tasks/:id/status", svc.taskHandler.UpdateStatus)
			protected.GET("/tasks/:id/history", svc.taskHandler.History)

			// Task detail and assign modals
			protected.GET("/tasks/:id/detail", svc.taskDetailHandler.Get)
			protected.PUT("/tasks/:id/detail", svc.taskDetailHandler.Save)
			protected.POST("/tasks/:id/assignments", svc.taskDetailHandler.Assign)
			protected.DELETE("/saves/:saveId", svc.taskDetailHandler.CancelSave)

			// Users
			protected.GET("/users", svc.userHandler.List)
		}
	}
}
