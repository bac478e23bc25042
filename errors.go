package authcoord

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations invoked after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrBuilderUsed is returned when a Builder's Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrNotAuthenticated marks operations that require a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ErrorKind categorizes an AuthError for branching without string matching.
type ErrorKind string

const (
	// ErrKindValidation covers rejected input, whether caught locally before
	// any request or reported back by the server.
	ErrKindValidation ErrorKind = "validation_error"
	// ErrKindNetwork covers transient transport failures with no server
	// verdict.
	ErrKindNetwork ErrorKind = "network_error"
	// ErrKindOAuthCallback covers failures in the external-provider exchange.
	ErrKindOAuthCallback ErrorKind = "oauth_callback_error"
	// ErrKindPrecondition covers operations invoked in the wrong state, such
	// as linking without a session.
	ErrKindPrecondition ErrorKind = "precondition_failed"
	// ErrKindSessionInvalid covers authoritative session invalidation.
	ErrKindSessionInvalid ErrorKind = "session_invalid"
)

// AuthError is the error type surfaced by coordinator operations. Retryable
// reports whether repeating the operation unchanged can succeed; everything
// except a precondition failure is retryable.
type AuthError struct {
	Kind      ErrorKind
	Message   string
	Code      string
	Retryable bool

	cause error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport or validation error.
func (e *AuthError) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == kind
}

func newAuthError(kind ErrorKind, message string, retryable bool, cause error) *AuthError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &AuthError{Kind: kind, Message: message, Retryable: retryable, cause: cause}
}
