package authcoord

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Transport.BaseURL = "https://auth.example.com"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing storage key", func(c *Config) { c.Session.StorageKey = "" }, "StorageKey"},
		{"negative lifetime", func(c *Config) { c.Session.MaxLifetime = -time.Hour }, "MaxLifetime"},
		{"zero threshold", func(c *Config) { c.Refresh.Threshold = 0 }, "Threshold"},
		{"zero threshold with refresh disabled", func(c *Config) {
			c.Refresh.Threshold = 0
			c.Refresh.Disabled = true
		}, ""},
		{"missing base url", func(c *Config) { c.Transport.BaseURL = "" }, "BaseURL"},
		{"zero timeout", func(c *Config) { c.Transport.Timeout = 0 }, "Timeout"},
		{"missing channel", func(c *Config) { c.Bus.Channel = "" }, "Channel"},
		{"zero audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "BufferSize"},
		{"zero audit buffer with audit disabled", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.BufferSize = 0
		}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Session.StorageKey != "authcoord:session" {
		t.Fatalf("StorageKey = %q", cfg.Session.StorageKey)
	}
	if cfg.Refresh.Threshold != 15*time.Minute {
		t.Fatalf("Threshold = %v", cfg.Refresh.Threshold)
	}
	if cfg.Transport.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v", cfg.Transport.Timeout)
	}
	if !cfg.Audit.Enabled || !cfg.Audit.DropIfFull {
		t.Fatalf("audit defaults = %+v", cfg.Audit)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics enabled by default")
	}
}

func TestStrictConfigHardens(t *testing.T) {
	cfg := StrictConfig()
	if cfg.Session.MaxLifetime != 24*time.Hour {
		t.Fatalf("MaxLifetime = %v", cfg.Session.MaxLifetime)
	}
	if cfg.Refresh.Threshold != 30*time.Minute {
		t.Fatalf("Threshold = %v", cfg.Refresh.Threshold)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("metrics = %+v", cfg.Metrics)
	}
}

func TestLoadConfigFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcoord.yaml")
	content := []byte(`
transport:
  baseUrl: https://auth.example.com
refresh:
  threshold: 20m
audit:
  enabled: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.Transport.BaseURL != "https://auth.example.com" {
		t.Fatalf("BaseURL = %q", cfg.Transport.BaseURL)
	}
	if cfg.Refresh.Threshold != 20*time.Minute {
		t.Fatalf("Threshold = %v", cfg.Refresh.Threshold)
	}
	if cfg.Audit.Enabled {
		t.Fatal("audit override not applied")
	}
	// Fields absent from the file keep their defaults.
	if cfg.Session.StorageKey != "authcoord:session" {
		t.Fatalf("StorageKey = %q", cfg.Session.StorageKey)
	}
}

func TestLoadConfigFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcoord.yaml")
	// Parses fine but fails validation: no base URL.
	if err := os.WriteFile(path, []byte("bus:\n  channel: c\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("invalid config accepted")
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestLoadConfigFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcoord.yaml")
	content := []byte("transport:\n  baseUrl: https://auth.example.com\n  timeout: soon\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "transport.timeout") {
		t.Fatalf("err = %v, want a transport.timeout parse error", err)
	}
}
