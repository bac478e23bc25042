package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"io"
	"sync"
	"time"
)

const tokenSize = 32

// Token is one anti-forgery token value. Sequence orders rotations across
// tabs; Degraded marks a value produced without a secure random source.
type Token struct {
	Value    string
	Sequence uint64
	Degraded bool
}

// Manager owns the single current token. All methods are safe for concurrent
// use.
type Manager struct {
	mu      sync.Mutex
	current Token
	counter uint64

	reader io.Reader
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRandReader overrides the secure random source. Tests use this to force
// the degraded path.
func WithRandReader(r io.Reader) Option {
	return func(m *Manager) { m.reader = r }
}

// WithNow overrides the clock used by the degraded generator.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager and generates the initial token, so even the
// first login call is protected.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		reader: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	value, degraded := m.newValue()
	m.current = Token{Value: value, Sequence: 1, Degraded: degraded}
	return m
}

// newValue returns a fresh token value. On secure-source failure it
// synthesizes a timestamp+counter value and reports it as degraded rather
// than failing or silently downgrading.
func (m *Manager) newValue() (string, bool) {
	var raw [tokenSize]byte
	if _, err := io.ReadFull(m.reader, raw[:]); err == nil {
		return base64.RawURLEncoding.EncodeToString(raw[:]), false
	}

	m.counter++
	var fallback [16]byte
	binary.BigEndian.PutUint64(fallback[:8], uint64(m.now().UnixNano()))
	binary.BigEndian.PutUint64(fallback[8:], m.counter)
	return base64.RawURLEncoding.EncodeToString(fallback[:]), true
}

// Current returns the current token.
func (m *Manager) Current() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Rotate replaces the current token with value (typically server-issued) and
// advances the rotation sequence. The previous value is never reused.
func (m *Manager) Rotate(value string) Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = Token{
		Value:    value,
		Sequence: m.current.Sequence + 1,
	}
	return m.current
}

// Regenerate replaces the current token with a fresh locally-generated value.
// Used on logout so the next anonymous login attempt is still protected.
func (m *Manager) Regenerate() Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, degraded := m.newValue()
	m.current = Token{
		Value:    value,
		Sequence: m.current.Sequence + 1,
		Degraded: degraded,
	}
	return m.current
}

// Adopt applies a rotation observed from a sibling tab. It is accepted only
// when its sequence is strictly newer than the current one, so duplicate or
// out-of-order messages cannot rewind the token. Reports whether the token
// was adopted.
func (m *Manager) Adopt(t Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Sequence <= m.current.Sequence {
		return false
	}
	m.current = t
	return true
}
