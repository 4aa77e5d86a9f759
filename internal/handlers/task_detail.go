package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/response"
)

// TaskDetailHandler serves the task detail modal and the assign modal.
type TaskDetailHandler struct {
	detailService *services.TaskDetailService
}

func NewTaskDetailHandler(detailService *services.TaskDetailService) *TaskDetailHandler {
	return &TaskDetailHandler{detailService: detailService}
}

// GET /api/tasks/:id/detail
func (h *TaskDetailHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	detail, err := h.detailService.Load(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// Save updates the task and reconciles its assignees with member_ids.
// A partial failure answers 502 with every operation's outcome in data.
// PUT /api/tasks/:id/detail
func (h *TaskDetailHandler) Save(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req services.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.detailService.Save(c.Request.Context(), middleware.GetCredential(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

type assignRequest struct {
	MemberID int64 `json:"member_id"`
}

// Assign adds one member to the task
// POST /api/tasks/:id/assignments
func (h *TaskDetailHandler) Assign(c *gin.Context) {
	id, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.detailService.Assign(c.Request.Context(), middleware.GetCredential(c), id, req.MemberID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, assignment)
}

// CancelSave abandons a running save, e.g. when the modal is closed.
// Only the caller that started the save can cancel it. Operations already
// acknowledged by the task API stay applied.
// DELETE /api/saves/:saveId
func (h *TaskDetailHandler) CancelSave(c *gin.Context) {
	saveID := c.Param("saveId")
	if !h.detailService.CancelSave(middleware.GetCredential(c), saveID) {
		response.NotFound(c, "no running save with this id")
		return
	}
	response.Success(c, gin.H{"save_id": saveID, "canceled": true})
}
