package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
	}{
		{code: CodeValidation, publicMsg: "validation failed"},
		{code: CodeUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, publicMsg: "conflict detected"},
		{code: CodeServer, publicMsg: "storefront unavailable", retryable: true},
		{code: CodeNetwork, publicMsg: "network request failed", retryable: true},
		{code: CodeSessionExpired, publicMsg: "session expired, please sign in again"},
		{code: CodeStorage, publicMsg: "local storage unavailable"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal client error" {
		t.Fatalf("expected internal fallback, got %q", meta.PublicMessage)
	}
}

func TestFromStatusMapsCodes(t *testing.T) {
	tests := []struct {
		status int
		code   Code
	}{
		{status: 0, code: CodeNetwork},
		{status: http.StatusBadRequest, code: CodeValidation},
		{status: http.StatusUnauthorized, code: CodeUnauthorized},
		{status: http.StatusForbidden, code: CodeForbidden},
		{status: http.StatusNotFound, code: CodeNotFound},
		{status: http.StatusConflict, code: CodeConflict},
		{status: http.StatusUnprocessableEntity, code: CodeValidation},
		{status: http.StatusTooManyRequests, code: CodeRateLimit},
		{status: http.StatusInternalServerError, code: CodeServer},
		{status: http.StatusBadGateway, code: CodeServer},
		{status: http.StatusTeapot, code: CodeInternal},
	}

	for _, tt := range tests {
		err := FromStatus(tt.status, "")
		if err.Code() != tt.code {
			t.Fatalf("status %d expected code %s got %s", tt.status, tt.code, err.Code())
		}
		if err.StatusCode() != tt.status {
			t.Fatalf("status %d not preserved, got %d", tt.status, err.StatusCode())
		}
	}
}

func TestFromStatusMessageFallback(t *testing.T) {
	err := FromStatus(http.StatusServiceUnavailable, "")
	if err.Message() != "storefront unavailable" {
		t.Fatalf("expected public message fallback, got %q", err.Message())
	}

	err = FromStatus(http.StatusConflict, "cart already merged")
	if err.Message() != "cart already merged" {
		t.Fatalf("server message should win, got %q", err.Message())
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.StatusCode() != 0 {
		t.Fatalf("new error should carry no status, got %d", base.StatusCode())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	base.WithStatus(http.StatusBadRequest)
	if base.StatusCode() != http.StatusBadRequest {
		t.Fatalf("WithStatus not applied, got %d", base.StatusCode())
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
