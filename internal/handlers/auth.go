package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges credentials for a task API token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		services.LogWarning("auth", "login_failed", "Login failed for "+req.Email, nil, c.ClientIP(), c.Request.UserAgent(), nil)
		respondError(c, err)
		return
	}

	services.LogInfo("auth", "login", "User "+resp.Username+" logged in", &resp.UserID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, resp)
}

// Signup creates an account on the task API
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, resp)
}
