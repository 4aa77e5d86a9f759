package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/internal/utils"
	"github.com/huangang/taskdesk/pkg/response"
)

const (
	ContextCredential = "credential"
	ContextUserID     = "user_id"
	ContextUsername   = "username"
	ContextVerified   = "verified"

	// HeaderUserID carries the numeric user id the login response returned.
	// The token alone does not always contain it.
	HeaderUserID   = "X-User-Id"
	HeaderUsername = "X-Username"
)

// CredentialRequired extracts the task API token from the Authorization
// header. Tokens that are malformed or already expired are rejected here so
// no upstream call is made with them; everything else is left to the task API.
func CredentialRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimSpace(parts[1])
		info, err := utils.InspectToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrTokenExpired) {
				msg = "session expired, please log in again"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		cred := upstream.Credential{
			Token:    token,
			Username: c.GetHeader(HeaderUsername),
		}
		if id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64); err == nil && id > 0 {
			cred.UserID = id
		}
		if cred.Username == "" {
			cred.Username = info.Subject
		}

		c.Set(ContextCredential, cred)
		c.Set(ContextUserID, cred.UserID)
		c.Set(ContextUsername, cred.Username)

		c.Next()
	}
}

// TokenVerifier confirms that a token is genuine.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*utils.TokenInfo, error)
}

// VerifiedCredential guards routes that taskdesk answers from its own data,
// where no upstream call would reject a forged token. The username is taken
// from the verified subject only. With allowQueryToken a "token" query
// parameter is accepted, for EventSource clients that cannot set headers.
func VerifiedCredential(verifier TokenVerifier, allowQueryToken bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && allowQueryToken {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			response.Unauthorized(c, "authorization required")
			c.Abort()
			return
		}

		info, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrTokenExpired):
				response.Unauthorized(c, "session expired, please log in again")
			case errors.Is(err, utils.ErrTokenMalformed), errors.Is(err, utils.ErrTokenSignature), errors.Is(err, services.ErrTokenRejected):
				response.Unauthorized(c, "invalid token")
			default:
				response.Error(c, response.NewServiceUnavailable("could not verify token"))
			}
			c.Abort()
			return
		}

		cred := upstream.Credential{Token: token, Username: info.Subject}
		if id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64); err == nil && id > 0 {
			cred.UserID = id
		}

		c.Set(ContextCredential, cred)
		c.Set(ContextUserID, cred.UserID)
		c.Set(ContextUsername, cred.Username)
		c.Set(ContextVerified, true)
		c.Next()
	}
}

// AdminRequired admits only verified callers whose username is in admins.
// An empty list admits nobody.
func AdminRequired(admins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		allowed[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return func(c *gin.Context) {
		verified := c.GetBool(ContextVerified)
		_, ok := allowed[strings.ToLower(GetUsername(c))]
		if !verified || !ok {
			response.Error(c, response.NewForbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetCredential returns the credential stored by CredentialRequired, or the
// anonymous credential on public routes.
func GetCredential(c *gin.Context) upstream.Credential {
	if v, exists := c.Get(ContextCredential); exists {
		if cred, ok := v.(upstream.Credential); ok {
			return cred
		}
	}
	return upstream.Anonymous
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(int64)
	}
	return 0
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}
