package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/middleware"
	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// Add adds a user to a project
// POST /api/project-members
func (h *MemberHandler) Add(c *gin.Context) {
	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Add(c.Request.Context(), middleware.GetCredential(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, member)
}

type updateRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// UpdateRole changes a member's role
// PUT /api/project-members/:id/role
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	id, ok := paramID(c, "id", "member")
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "role is required")
		return
	}

	member, err := h.memberService.UpdateRole(c.Request.Context(), middleware.GetCredential(c), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, member)
}

// Remove removes a member from its project
// DELETE /api/project-members/:id
func (h *MemberHandler) Remove(c *gin.Context) {
	id, ok := paramID(c, "id", "member")
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), middleware.GetCredential(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
