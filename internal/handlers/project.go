package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	memberService  *services.MemberService
	taskService    *services.TaskService
}

func NewProjectHandler(projects *services.ProjectService, members *services.MemberService, tasks *services.TaskService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projects,
		memberService:  members,
		taskService:    tasks,
	}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), middleware.GetCredential(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetCredential(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, project)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetCredential(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, project)
}

// Delete deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), middleware.GetCredential(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// GET /api/projects/:id/stats
func (h *ProjectHandler) Stats(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	stats, err := h.projectService.Stats(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}

// Detail returns the project with its tasks, members and computed stats.
// GET /api/projects/:id/detail
func (h *ProjectHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	detail, err := h.projectService.Detail(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, detail)
}

// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, members)
}

// MemberCandidates lists users that can still join the project.
// GET /api/projects/:id/member-candidates
func (h *ProjectHandler) MemberCandidates(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	list, err := h.memberService.Candidates(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, list)
}

// GET /api/projects/:id/tasks
func (h *ProjectHandler) Tasks(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListByProject(c.Request.Context(), middleware.GetCredential(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, tasks)
}
