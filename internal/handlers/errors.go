package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskdesk/internal/services"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/pkg/logger"
	"github.com/huangang/taskdesk/pkg/response"
)

// toAppError maps a service error onto the HTTP status the browser sees.
// Task API rejections keep their meaning (404 stays 404); anything the task
// API failed at becomes a gateway error.
func toAppError(err error) *response.AppError {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		return response.NewServerError("internal error")
	}

	switch svcErr.Kind {
	case services.KindValidation:
		return response.NewBadRequest(svcErr.Message)
	case services.KindCanceled:
		return response.NewClientClosed(svcErr.Message)
	case services.KindPartialReconciliation:
		return response.NewBadGateway(svcErr.Message).WithDetails(svcErr.Details)
	}

	var apiErr *upstream.APIError
	if !errors.As(svcErr.Cause, &apiErr) {
		return response.NewBadGateway(svcErr.Message)
	}
	switch apiErr.Kind {
	case upstream.KindBadRequest:
		return response.NewBadRequest(svcErr.Message)
	case upstream.KindUnauthorized:
		return response.NewUnauthorized(svcErr.Message)
	case upstream.KindForbidden:
		return response.NewForbidden(svcErr.Message)
	case upstream.KindNotFound:
		return response.NewNotFound(svcErr.Message)
	case upstream.KindConflict:
		return response.NewConflict(svcErr.Message)
	case upstream.KindUnavailable:
		return response.NewServiceUnavailable(svcErr.Message)
	default:
		return response.NewBadGateway(svcErr.Message)
	}
}

func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Warn().Err(err).Str("path", c.FullPath()).Int("status", appErr.HTTPStatus).Msg("request failed")
	}
	response.Error(c, appErr)
}

// paramID parses a positive integer path parameter; what names it in the
// error message.
func paramID(c *gin.Context, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}
