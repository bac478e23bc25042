package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAuthoritativeReject marks responses that definitively deny the session
// or the request (HTTP 401/403). Wrapped by ServerError where applicable.
var ErrAuthoritativeReject = errors.New("authoritative rejection")

// ServerError is a failure the server reported in the documented error
// shape. It is an expected failure mode, not a transport problem.
type ServerError struct {
	Status  int
	Type    string
	Message string
	Code    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("server rejected request: status %d", e.Status)
}

// Unwrap lets errors.Is(err, ErrAuthoritativeReject) detect 401/403.
func (e *ServerError) Unwrap() error {
	if e.Status == 401 || e.Status == 403 {
		return ErrAuthoritativeReject
	}
	return nil
}

// TransientError is a transport-level failure (connection error, timeout,
// 5xx). The existing session remains valid until proven otherwise.
type TransientError struct {
	Cause   error
	Timeout bool
}

func (e *TransientError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transient network failure (timeout): %v", e.Cause)
	}
	return fmt.Sprintf("transient network failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is a transport failure that must not be
// treated as an authoritative rejection.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsAuthoritative reports whether err definitively denies the request.
func IsAuthoritative(err error) bool {
	return errors.Is(err, ErrAuthoritativeReject)
}

func transientFrom(err error) *TransientError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) {
		timeout = netErr.Timeout()
	}
	return &TransientError{Cause: err, Timeout: timeout}
}
