package flows

import (
	"context"
	"time"

	"github.com/veldtma/authcoord/session"
)

// ValidateOutcome is the tri-state verdict of a server-side session check.
type ValidateOutcome int

const (
	// ValidateAccepted: the server confirmed the session.
	ValidateAccepted ValidateOutcome = iota
	// ValidateRejected: the server authoritatively declared the session
	// invalid. Local state must be ended.
	ValidateRejected
	// ValidateTransient: the check could not complete. No verdict; local
	// state is kept.
	ValidateTransient
)

// ValidateResult carries the verdict plus any server-supplied corrections.
type ValidateResult struct {
	Outcome ValidateOutcome
	Err     error
	Reason  string

	// Session is non-nil when the server returned a fresher user record on
	// acceptance.
	Session *session.Session
	// ExpiresAt is non-zero when the server reported a corrected expiry.
	ExpiresAt time.Time
}

// RunValidate asks the server whether the current session still stands. A
// transport failure is never treated as a rejection.
func RunValidate(ctx context.Context, deps Deps) ValidateResult {
	payload, err := deps.API.Validate(ctx)
	if err != nil {
		return ValidateResult{Outcome: ValidateTransient, Err: err}
	}
	if !payload.Valid {
		return ValidateResult{Outcome: ValidateRejected, Reason: payload.Reason}
	}
	return ValidateResult{
		Outcome:   ValidateAccepted,
		Session:   payload.User.Session(deps.Now()),
		ExpiresAt: payload.ExpiresAt,
	}
}
