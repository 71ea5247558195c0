package model

import (
	"errors"
	"fmt"
	"time"
)

// Well-known envelope codes returned by the storefront API.
const (
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// BusinessFailure is returned when the server answered with an envelope
// whose code is not CodeOK: bad credentials, not found, validation.
type BusinessFailure struct {
	URL     string `json:"url"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *BusinessFailure) Error() string {
	return fmt.Sprintf("request %s rejected: code %d: %s", e.URL, e.Code, e.Message)
}

// TransportError is returned when no usable envelope came back: the server
// was unreachable, timed out, or answered with something that is not an envelope.
type TransportError struct {
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"` // HTTP status, 0 when no response arrived
	Cause  error  `json:"-"`
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request %s failed: HTTP %d: %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ExpiredSession describes a stored session found expired on read.
// It is handled locally and reported to the user, never returned to callers.
type ExpiredSession struct {
	Scope     Scope
	ExpiredAt time.Time
}

func (e *ExpiredSession) Error() string {
	return fmt.Sprintf("%s session expired at %s", e.Scope, e.ExpiredAt.Format(time.RFC3339))
}

// IsBusinessFailure reports whether err wraps a BusinessFailure with the given code.
// A code of 0 matches any BusinessFailure.
func IsBusinessFailure(err error, code int) bool {
	var bf *BusinessFailure
	if !errors.As(err, &bf) {
		return false
	}
	return code == 0 || bf.Code == code
}

// IsTransportError reports whether err wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
