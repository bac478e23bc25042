package session

import (
	"context"
	"sync"
	"time"

	"github.com/veldtma/authcoord/kv"
)

// Store mediates all reads and writes of the current session within one
// coordinator instance and mirrors it to the durable per-origin store.
//
// Every state transition advances a monotonic version stamp. Callers capture
// the stamp before a network round-trip and re-check it before applying the
// result, so a response resolving after the session has moved on is
// discarded instead of clobbering newer state.
type Store struct {
	mu          sync.Mutex
	current     *Session
	version     uint64
	storage     kv.Store
	storageKey  string
	maxLifetime time.Duration
	now         func() time.Time
}

// NewStore creates a Store persisting under storageKey. maxLifetime caps
// every accepted session's validity window; now supplies the clock.
func NewStore(storage kv.Store, storageKey string, maxLifetime time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage:     storage,
		storageKey:  storageKey,
		maxLifetime: maxLifetime,
		now:         now,
	}
}

// Hydrate loads the persisted record into memory. A missing, corrupt,
// version-mismatched, or already-expired record yields no session; corrupt
// reports whether a record existed but could not be trusted. Only storage
// transport failures surface as err.
func (s *Store) Hydrate(ctx context.Context) (sess *Session, corrupt bool, err error) {
	data, ok, err := s.storage.Get(ctx, s.storageKey)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	decoded, err := Decode(data)
	if err != nil {
		// Fail open to logged-out, never closed to a fabricated session.
		_ = s.storage.Delete(ctx, s.storageKey)
		return nil, true, nil
	}
	if decoded.Expired(s.now()) {
		_ = s.storage.Delete(ctx, s.storageKey)
		return nil, false, nil
	}

	decoded.ClampLifetime(s.maxLifetime)

	s.mu.Lock()
	s.current = decoded
	s.version++
	s.mu.Unlock()

	return decoded.Clone(), false, nil
}

// Snapshot returns a copy of the current session (nil when logged out) plus
// the version stamp it was read at.
func (s *Store) Snapshot() (*Session, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone(), s.version
}

// Version returns the current version stamp.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Replace installs sess as the current session and persists it. The previous
// session is returned for rollback on downstream failure. A persistence
// failure does not unwind the in-memory update; the error is surfaced so the
// caller can log it.
func (s *Store) Replace(ctx context.Context, sess *Session) (*Session, error) {
	installed := sess.Clone()
	installed.ClampLifetime(s.maxLifetime)

	s.mu.Lock()
	prev := s.current
	s.current = installed
	s.version++
	s.mu.Unlock()

	data, err := Encode(installed)
	if err != nil {
		return prev.Clone(), err
	}
	if err := s.storage.Set(ctx, s.storageKey, data); err != nil {
		return prev.Clone(), err
	}
	return prev.Clone(), nil
}

// ApplyRemote installs a session received from a sibling tab without writing
// to durable storage; the originating tab already persisted it (single-writer
// rule).
func (s *Store) ApplyRemote(sess *Session) {
	installed := sess.Clone()
	installed.ClampLifetime(s.maxLifetime)

	s.mu.Lock()
	s.current = installed
	s.version++
	s.mu.Unlock()
}

// Clear drops the in-memory session and removes the persisted record. It is
// idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.version++
	s.mu.Unlock()

	return s.storage.Delete(ctx, s.storageKey)
}

// ClearLocal drops the in-memory session only. Used when a sibling tab
// already removed the durable record.
func (s *Store) ClearLocal() {
	s.mu.Lock()
	s.current = nil
	s.version++
	s.mu.Unlock()
}

// MarkValidated stamps the volatile last-validated time on the current
// session, if any.
func (s *Store) MarkValidated(t time.Time) {
	s.mu.Lock()
	if s.current != nil {
		s.current.LastValidatedAt = t
	}
	s.mu.Unlock()
}
