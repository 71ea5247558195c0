package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestBusinessFailure_Error(t *testing.T) {
	err := &BusinessFailure{URL: "/auth/login", Code: 401, Message: "bad credentials"}
	want := "request /auth/login rejected: code 401: bad credentials"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("logout: %w", &TransportError{URL: "/auth/logout", Cause: cause})
	if !errors.Is(err, cause) {
		t.Error("expected wrapped TransportError to unwrap to its cause")
	}
	if !IsTransportError(err) {
		t.Error("IsTransportError should match a wrapped TransportError")
	}
	if IsBusinessFailure(err, 0) {
		t.Error("IsBusinessFailure should not match a TransportError")
	}
}

func TestIsBusinessFailure(t *testing.T) {
	err := fmt.Errorf("login: %w", &BusinessFailure{URL: "/auth/login", Code: CodeUnauthorized})
	if !IsBusinessFailure(err, 0) {
		t.Error("code 0 should match any BusinessFailure")
	}
	if !IsBusinessFailure(err, CodeUnauthorized) {
		t.Error("expected match on code 401")
	}
	if IsBusinessFailure(err, CodeNotFound) {
		t.Error("unexpected match on code 404")
	}
}
