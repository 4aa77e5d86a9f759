package services

import (
	"context"
	"errors"

	"github.com/huangang/taskdesk/internal/upstream"
)

// ErrorKind tells handlers how a failed use case should be surfaced.
type ErrorKind string

const (
	KindLoadFailure           ErrorKind = "load_failure"
	KindValidation            ErrorKind = "validation_failure"
	KindPartialReconciliation ErrorKind = "partial_reconciliation_failure"
	KindUpstream              ErrorKind = "upstream_failure"
	KindCanceled              ErrorKind = "canceled"
)

// Error is returned by every service method. Message is always safe to
// show to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// upstreamError wraps a failed task API call. The server's own message is
// preferred over fallback when it sent one.
func upstreamError(err error, fallback string) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Message: "Request canceled", Cause: err}
	}
	msg := fallback
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &Error{Kind: KindUpstream, Message: msg, Cause: err}
}

// KindOf returns the kind of a service error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// Notice reports a collection that failed to load and was replaced by an
// empty one. The rest of the response is still usable.
type Notice struct {
	Source  string    `json:"source"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func loadNotice(source, message string, err error) Notice {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = message + ": " + apiErr.Message
	}
	return Notice{Source: source, Kind: KindLoadFailure, Message: message}
}
