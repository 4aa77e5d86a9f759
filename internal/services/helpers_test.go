package services

import (
	"errors"
	"testing"
)

func assertServiceError(t *testing.T, err error, kind ErrorKind, message string) *Error {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, expected *services.Error", err)
	}
	if svcErr.Kind != kind {
		t.Errorf("Kind = %q, expected %q", svcErr.Kind, kind)
	}
	if message != "" && svcErr.Message != message {
		t.Errorf("Message = %q, expected %q", svcErr.Message, message)
	}
	return svcErr
}
