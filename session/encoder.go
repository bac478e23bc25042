package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the persisted-record schema understood by this
// build. Records with any other version are treated as absent, never
// migrated into a fabricated session.
const CurrentSchemaVersion = 1

// ErrCorruptRecord is returned by Decode for unparseable payloads.
var ErrCorruptRecord = errors.New("corrupt session record")

// ErrSchemaVersionMismatch is returned by Decode when the envelope version is
// not CurrentSchemaVersion.
var ErrSchemaVersionMismatch = errors.New("session schema version mismatch")

type persistedLinkedAccount struct {
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	ProviderEmail     string    `json:"providerEmail,omitempty"`
	LinkedAt          time.Time `json:"linkedAt"`
}

type persistedSession struct {
	UserID     string                   `json:"userId"`
	Email      string                   `json:"email"`
	GivenName  string                   `json:"givenName,omitempty"`
	FamilyName string                   `json:"familyName,omitempty"`
	AvatarURL  string                   `json:"avatarUrl,omitempty"`
	Method     string                   `json:"method"`
	Linked     []persistedLinkedAccount `json:"linkedAccounts,omitempty"`
	IssuedAt   time.Time                `json:"issuedAt"`
	ExpiresAt  time.Time                `json:"expiresAt"`
}

type envelope struct {
	Version int               `json:"version"`
	Session *persistedSession `json:"session"`
}

// Encode serializes s into the versioned persistence envelope.
// LastValidatedAt is deliberately not part of the record.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}

	record := persistedSession{
		UserID:     s.UserID,
		Email:      s.Email,
		GivenName:  s.GivenName,
		FamilyName: s.FamilyName,
		AvatarURL:  s.AvatarURL,
		Method:     string(s.Method),
		IssuedAt:   s.IssuedAt,
		ExpiresAt:  s.ExpiresAt,
	}
	for _, link := range s.Linked {
		record.Linked = append(record.Linked, persistedLinkedAccount{
			Provider:          link.Provider,
			ProviderAccountID: link.ProviderAccountID,
			ProviderEmail:     link.ProviderEmail,
			LinkedAt:          link.LinkedAt,
		})
	}

	return json.Marshal(envelope{Version: CurrentSchemaVersion, Session: &record})
}

// Decode parses a persisted envelope back into a Session.
func Decode(data []byte) (*Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if env.Version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: got %d", ErrSchemaVersionMismatch, env.Version)
	}
	if env.Session == nil || env.Session.UserID == "" {
		return nil, ErrCorruptRecord
	}

	s := &Session{
		UserID:     env.Session.UserID,
		Email:      env.Session.Email,
		GivenName:  env.Session.GivenName,
		FamilyName: env.Session.FamilyName,
		AvatarURL:  env.Session.AvatarURL,
		Method:     AuthMethod(env.Session.Method),
		IssuedAt:   env.Session.IssuedAt,
		ExpiresAt:  env.Session.ExpiresAt,
	}
	for _, link := range env.Session.Linked {
		s.Linked = append(s.Linked, LinkedAccount{
			Provider:          link.Provider,
			ProviderAccountID: link.ProviderAccountID,
			ProviderEmail:     link.ProviderEmail,
			LinkedAt:          link.LinkedAt,
		})
	}
	return s, nil
}
