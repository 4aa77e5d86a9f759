package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestToAppError(t *testing.T) {
	upstreamErr := func(kind upstream.Kind) error {
		return &services.Error{
			Kind:    services.KindUpstream,
			Message: "server said no",
			Cause:   &upstream.APIError{Kind: kind, Message: "server said no"},
		}
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &services.Error{Kind: services.KindValidation, Message: "Title is required"}, http.StatusBadRequest},
		{"canceled", &services.Error{Kind: services.KindCanceled, Message: "Save canceled", Cause: context.Canceled}, 499},
		{"partial", &services.Error{Kind: services.KindPartialReconciliation, Message: "Assignment is locked"}, http.StatusBadGateway},
		{"bad request", upstreamErr(upstream.KindBadRequest), http.StatusBadRequest},
		{"unauthorized", upstreamErr(upstream.KindUnauthorized), http.StatusUnauthorized},
		{"forbidden", upstreamErr(upstream.KindForbidden), http.StatusForbidden},
		{"not found", upstreamErr(upstream.KindNotFound), http.StatusNotFound},
		{"conflict", upstreamErr(upstream.KindConflict), http.StatusConflict},
		{"unavailable", upstreamErr(upstream.KindUnavailable), http.StatusServiceUnavailable},
		{"server", upstreamErr(upstream.KindServer), http.StatusBadGateway},
		{"transport", upstreamErr(upstream.KindTransport), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("detail: %w", upstreamErr(upstream.KindNotFound)), http.StatusNotFound},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := toAppError(tt.err)
			if appErr.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, expected %d", appErr.HTTPStatus, tt.status)
			}
		})
	}
}

func TestToAppError_KeepsMessageAndDetails(t *testing.T) {
	details := map[string]string{"save_id": "s-1"}
	appErr := toAppError(&services.Error{
		Kind:    services.KindPartialReconciliation,
		Message: "Assignment is locked",
		Details: details,
	})
	if appErr.Message != "Assignment is locked" {
		t.Errorf("Message = %q", appErr.Message)
	}
	if got, ok := appErr.Details.(map[string]string); !ok || got["save_id"] != "s-1" {
		t.Errorf("Details = %v, expected the partial results", appErr.Details)
	}

	if msg := toAppError(errors.New("sql: connection refused")).Message; msg != "internal error" {
		t.Errorf("foreign error message = %q, expected it hidden", msg)
	}
}
