package authcoord

import (
	"context"
	"net/http"
	"testing"
)

func TestValidateWithoutSession(t *testing.T) {
	env := newTestEnv(t, nil)

	valid, err := env.coord.Validate(context.Background())
	if valid || err != nil {
		t.Fatalf("Validate = (%v, %v), want (false, nil)", valid, err)
	}
	if env.backend.count("/api/auth/validate") != 0 {
		t.Fatal("validate without a session reached the network")
	}
}

func TestValidateAccepted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	valid, err := env.coord.Validate(context.Background())
	if !valid || err != nil {
		t.Fatalf("Validate = (%v, %v), want (true, nil)", valid, err)
	}
	view := env.coord.View()
	if !view.Session.LastValidatedAt.Equal(env.clock.Now()) {
		t.Fatalf("LastValidatedAt = %v, want %v", view.Session.LastValidatedAt, env.clock.Now())
	}
	if got := env.coord.MetricsSnapshot().Counters[MetricValidateAccepted]; got != 1 {
		t.Fatalf("accepted counter = %d", got)
	}
}

func TestValidateRejectionEndsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	env.backend.set(func(b *scriptedBackend) {
		b.valid = false
		b.validReason = "session revoked"
	})

	// The verdict is an answer, not a failure.
	valid, err := env.coord.Validate(context.Background())
	if valid || err != nil {
		t.Fatalf("Validate = (%v, %v), want (false, nil)", valid, err)
	}
	if env.coord.IsAuthenticated() {
		t.Fatal("session survived an authoritative rejection")
	}
	if _, ok, _ := env.storage.Get(context.Background(), "authcoord:session"); ok {
		t.Fatal("session record survived rejection")
	}

	invalidEvents := 0
	for _, e := range env.coord.AuditTrail() {
		if e.Kind == "session-invalid" {
			invalidEvents++
			if e.Error != "session revoked" {
				t.Fatalf("audit error = %q", e.Error)
			}
			if e.Severity != "high" {
				t.Fatalf("audit severity = %q, want high", e.Severity)
			}
		}
	}
	if invalidEvents != 1 {
		t.Fatalf("session-invalid events = %d, want exactly one", invalidEvents)
	}
	if !IsKind(env.coord.View().LastError, ErrKindSessionInvalid) {
		t.Fatalf("LastError = %v", env.coord.View().LastError)
	}
}

func TestValidateTransientFailureKeepsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	env.backend.set(func(b *scriptedBackend) { b.validStatus = http.StatusServiceUnavailable })

	valid, err := env.coord.Validate(context.Background())
	if !valid {
		t.Fatal("transient failure reported the session invalid")
	}
	if !IsKind(err, ErrKindNetwork) {
		t.Fatalf("err = %v, want network kind", err)
	}
	if !env.coord.IsAuthenticated() {
		t.Fatal("transient failure ended the session")
	}
	if got := env.coord.MetricsSnapshot().Counters[MetricValidateTransient]; got != 1 {
		t.Fatalf("transient counter = %d", got)
	}
}
