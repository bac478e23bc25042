package authcoord

import (
	"errors"
	"fmt"
	"time"
)

// SessionConfig governs the persisted session record and its validity cap.
type SessionConfig struct {
	// StorageKey is the durable-store key holding the session record.
	StorageKey string
	// MaxLifetime caps ExpiresAt at IssuedAt+MaxLifetime regardless of what
	// the server reports. Zero disables the cap.
	MaxLifetime time.Duration
}

// RefreshConfig governs the proactive refresh timer.
type RefreshConfig struct {
	// Threshold is how long before expiry the refresh fires.
	Threshold time.Duration
	// Disabled turns off automatic refresh; Refresh remains callable.
	Disabled bool
}

// TransportConfig governs the HTTP exchanges with the auth backend.
type TransportConfig struct {
	BaseURL string
	// Timeout bounds each request. Overruns classify as transient, never as
	// a session verdict.
	Timeout time.Duration
}

// BusConfig governs cross-instance synchronization.
type BusConfig struct {
	// Channel names the broadcast channel shared by all instances of one
	// logical client.
	Channel string
}

// AuditConfig governs audit event capture and delivery.
type AuditConfig struct {
	Enabled bool
	// BufferSize sizes the async sink delivery queue.
	BufferSize int
	// DropIfFull drops events instead of blocking when the queue is full.
	DropIfFull bool
	// Retention caps the in-memory audit trail; oldest events are evicted.
	Retention int
}

// MetricsConfig governs counter and latency-histogram collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the coordinator's full configuration tree.
type Config struct {
	Session   SessionConfig
	Refresh   RefreshConfig
	Transport TransportConfig
	Bus       BusConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			StorageKey:  "authcoord:session",
			MaxLifetime: 7 * 24 * time.Hour,
		},
		Refresh: RefreshConfig{
			Threshold: 15 * time.Minute,
		},
		Transport: TransportConfig{
			Timeout: 5 * time.Second,
		},
		Bus: BusConfig{
			Channel: "authcoord:sync",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
			Retention:  1000,
		},
	}
}

// DefaultConfig returns the baseline configuration. Transport.BaseURL must
// still be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

// StrictConfig returns a hardened preset: shorter session cap, earlier
// refresh, metrics and latency histograms on.
func StrictConfig() Config {
	cfg := defaultConfig()
	cfg.Session.MaxLifetime = 24 * time.Hour
	cfg.Refresh.Threshold = 30 * time.Minute
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// Validate rejects configurations the coordinator cannot run with.
func (c Config) Validate() error {
	if c.Session.StorageKey == "" {
		return errors.New("Session.StorageKey required")
	}
	if c.Session.MaxLifetime < 0 {
		return errors.New("Session.MaxLifetime must not be negative")
	}
	if c.Refresh.Threshold <= 0 && !c.Refresh.Disabled {
		return errors.New("Refresh.Threshold must be positive when refresh is enabled")
	}
	if c.Transport.BaseURL == "" {
		return errors.New("Transport.BaseURL required")
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport.Timeout must be positive")
	}
	if c.Bus.Channel == "" {
		return errors.New("Bus.Channel required")
	}
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit.BufferSize must be positive when audit is enabled")
		}
		if c.Audit.Retention < 0 {
			return fmt.Errorf("Audit.Retention must not be negative, got %d", c.Audit.Retention)
		}
	}
	return nil
}
