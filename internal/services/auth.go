package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/internal/utils"
)

// AuthService forwards logins and signups to the task API, which issues
// and verifies the tokens.
type AuthService struct {
	api *upstream.Client
}

func NewAuthService(api *upstream.Client) *AuthService {
	return &AuthService{api: api}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	UserID    int64      `json:"user_id,omitempty"`
	Username  string     `json:"username"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, validationError("Please fill in all fields")
	}

	resp, err := s.api.Login(ctx, email, req.Password)
	if err != nil {
		if upstream.IsKind(err, upstream.KindUnauthorized) || upstream.IsKind(err, upstream.KindBadRequest) {
			return nil, &Error{Kind: KindUpstream, Message: "Invalid email or password", Cause: err}
		}
		return nil, upstreamError(err, "Login failed")
	}
	return toLoginResponse(resp), nil
}

func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, validationError("Please fill in all fields")
	}
	if req.Password != req.ConfirmPassword {
		return nil, validationError("Passwords do not match")
	}

	resp, err := s.api.Signup(ctx, upstream.SignupRequest{
		Username: username,
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		return nil, upstreamError(err, "Signup failed")
	}
	return toLoginResponse(resp), nil
}

func toLoginResponse(resp *upstream.AuthResponse) *LoginResponse {
	out := &LoginResponse{
		Token:    resp.Token,
		UserID:   resp.UserID,
		Username: resp.Username,
	}
	if info, err := utils.InspectToken(resp.Token); err == nil && !info.ExpiresAt.IsZero() {
		exp := info.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}
