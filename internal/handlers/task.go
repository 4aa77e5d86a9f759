package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create creates a task in a project
// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.GetCredential(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, task)
}

// GetByID returns a task by ID
// GET /api/tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, task)
}

// ListByStatus returns a project's tasks in one status column
// GET /api/tasks/by-status?project_id=1&status=TODO
func (h *TaskHandler) ListByStatus(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Query("project_id"), 10, 64)
	if err != nil || projectID <= 0 {
		response.BadRequest(c, "invalid project id")
		return
	}

	status := models.TaskStatus(c.Query("status"))
	tasks, err := h.taskService.ListByStatus(c.Request.Context(), middleware.GetCredential(c), projectID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tasks)
}

type updateStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// UpdateStatus moves a task to another column
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}

	task, err := h.taskService.UpdateStatus(c.Request.Context(), middleware.GetCredential(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, task)
}

// Delete deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), middleware.GetCredential(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// GET /api/tasks/:id/history
func (h *TaskHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	history, err := h.taskService.History(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, history)
}
