package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func sampleSession() *Session {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		UserID:     "u-1",
		Email:      "ada@example.com",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Method:     AuthMethodPassword,
		Linked: []LinkedAccount{
			{Provider: "github", ProviderAccountID: "gh-77", LinkedAt: issued},
		},
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleSession()
	original.LastValidatedAt = time.Now()

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.UserID != original.UserID || decoded.Email != original.Email {
		t.Fatalf("identity mismatch: %+v", decoded)
	}
	if decoded.Method != AuthMethodPassword {
		t.Fatalf("method = %q", decoded.Method)
	}
	if len(decoded.Linked) != 1 || decoded.Linked[0].Provider != "github" {
		t.Fatalf("linked accounts = %+v", decoded.Linked)
	}
	if !decoded.ExpiresAt.Equal(original.ExpiresAt) {
		t.Fatalf("expiresAt = %v, want %v", decoded.ExpiresAt, original.ExpiresAt)
	}
	if !decoded.LastValidatedAt.IsZero() {
		t.Fatal("LastValidatedAt survived persistence; it must be volatile")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestDecodeRejectsUnknownSchemaVersion(t *testing.T) {
	data, err := Encode(sampleSession())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	env["version"] = json.RawMessage("99")
	tampered, _ := json.Marshal(env)

	if _, err := Decode(tampered); !errors.Is(err, ErrSchemaVersionMismatch) {
		t.Fatalf("err = %v, want ErrSchemaVersionMismatch", err)
	}
}

func TestDecodeRejectsEmptyUserID(t *testing.T) {
	sess := sampleSession()
	sess.UserID = ""
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}
