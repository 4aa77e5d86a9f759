package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
)

const maxAuditBody = 2000

var sensitiveField = regexp.MustCompile(`(?i)("(?:password|confirm_password|token|secret|webhook_url)"\s*:\s*)"(?:[^"\\]|\\.)*"`)

// AuditLog records every write made through the API to the system log,
// after the handler ran, with the status it produced.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status)

		var uid *int64
		if id := GetUserID(c); id > 0 {
			uid = &id
		}

		log := services.LogInfo
		if status >= http.StatusInternalServerError {
			log = services.LogWarning
		}
		log(module, action, message, uid, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
			"audit":  true,
		})
	}
}

// parseRouteInfo maps a route pattern to a module and action, e.g.
// PUT /api/tasks/:id/detail gives ("tasks", "update_detail").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	segments := strings.Split(path, "/")

	module = segments[0]
	if module == "" {
		module = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}

	// a trailing static segment names the sub-resource
	if len(segments) > 1 {
		last := segments[len(segments)-1]
		if last != "" && !strings.HasPrefix(last, ":") {
			action += "_" + strings.ReplaceAll(last, "-", "_")
		}
	}
	return module, action
}

func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	outcome := "OK"
	if status < 200 || status >= 300 {
		outcome = fmt.Sprintf("Failed (%d)", status)
	}
	return fmt.Sprintf("[Audit] %s %s %s: %s", username, method, path, outcome)
}

// maskSensitiveFields blanks the string values of credential-like JSON keys.
func maskSensitiveFields(body string) string {
	return sensitiveField.ReplaceAllString(body, `$1"***"`)
}
