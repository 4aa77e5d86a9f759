package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/internal/upstream"
	"gorm.io/gorm"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	api   *upstream.Client
	hub   *services.EventHub
	queue services.TaskQueue
	saves *services.SaveRegistry
}

func NewHealthHandler(db *gorm.DB, api *upstream.Client, hub *services.EventHub, queue services.TaskQueue, saves *services.SaveRegistry) *HealthHandler {
	return &HealthHandler{db: db, api: api, hub: hub, queue: queue, saves: saves}
}

// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "taskdesk"})
}

// CheckDetail reports every subsystem. An open breaker degrades the
// service without making it unhealthy: reads fail fast until it closes.
// GET /health/detail
func (h *HealthHandler) CheckDetail(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "disabled"
	} else if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	breaker := "unknown"
	if h.api != nil {
		breaker = h.api.BreakerState()
		if breaker != "closed" && overall == "healthy" {
			overall = "degraded"
		}
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	activeSaves := 0
	if h.saves != nil {
		activeSaves = h.saves.Active()
	}

	sseClients := 0
	if h.hub != nil {
		sseClients = h.hub.ClientCount()
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "taskdesk",
		"components": gin.H{
			"database":         dbStatus,
			"upstream_breaker": breaker,
			"queue_mode":       queueMode,
			"sse_clients":      sseClients,
			"active_saves":     activeSaves,
		},
	})
}
