package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(origins...))
	router.GET("/api/projects", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.PUT("/api/tasks/5/detail", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestCORS_AnyOriginByDefault(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	corsRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("Access-Control-Allow-Origin = %q, expected the request origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, expected %q", got, "true")
	}
}

func TestCORS_PreflightForDetailSave(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/5/detail", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-User-Id")
	corsRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, expected 200 or 204", w.Code)
	}
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	if !strings.Contains(allowed, "x-user-id") {
		t.Errorf("Access-Control-Allow-Headers = %q, expected it to include X-User-Id", allowed)
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	router := corsRouter("https://app.example.com")

	tests := []struct {
		origin     string
		wantStatus int
		wantHeader string
	}{
		{"https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"https://evil.example.com", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			req.Header.Set("Origin", tt.origin)
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, expected %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, expected %q", got, tt.wantHeader)
			}
		})
	}
}

func TestAllowAny(t *testing.T) {
	tests := []struct {
		origins  []string
		expected bool
	}{
		{nil, true},
		{[]string{"*"}, true},
		{[]string{"https://a.example.com", "*"}, true},
		{[]string{"https://a.example.com"}, false},
	}
	for _, tt := range tests {
		if got := allowAny(tt.origins); got != tt.expected {
			t.Errorf("allowAny(%v) = %v, expected %v", tt.origins, got, tt.expected)
		}
	}
}
