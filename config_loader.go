package authcoord

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML schema. Durations are written as Go duration
// strings ("15m", "5s"); pointers distinguish an absent field from a zero
// value so absent fields keep their defaults.
type fileConfig struct {
	Session struct {
		StorageKey  *string `yaml:"storageKey"`
		MaxLifetime *string `yaml:"maxLifetime"`
	} `yaml:"session"`
	Refresh struct {
		Threshold *string `yaml:"threshold"`
		Disabled  *bool   `yaml:"disabled"`
	} `yaml:"refresh"`
	Transport struct {
		BaseURL *string `yaml:"baseUrl"`
		Timeout *string `yaml:"timeout"`
	} `yaml:"transport"`
	Bus struct {
		Channel *string `yaml:"channel"`
	} `yaml:"bus"`
	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize *int  `yaml:"bufferSize"`
		DropIfFull *bool `yaml:"dropIfFull"`
		Retention  *int  `yaml:"retention"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled                 *bool `yaml:"enabled"`
		EnableLatencyHistograms *bool `yaml:"enableLatencyHistograms"`
	} `yaml:"metrics"`
}

// LoadConfigFile reads a YAML configuration file layered over the defaults:
// fields absent from the file keep their default values.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := applyFileConfig(&cfg, file); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, file fileConfig) error {
	setString(&cfg.Session.StorageKey, file.Session.StorageKey)
	setString(&cfg.Transport.BaseURL, file.Transport.BaseURL)
	setString(&cfg.Bus.Channel, file.Bus.Channel)
	setBool(&cfg.Refresh.Disabled, file.Refresh.Disabled)
	setBool(&cfg.Audit.Enabled, file.Audit.Enabled)
	setBool(&cfg.Audit.DropIfFull, file.Audit.DropIfFull)
	setBool(&cfg.Metrics.Enabled, file.Metrics.Enabled)
	setBool(&cfg.Metrics.EnableLatencyHistograms, file.Metrics.EnableLatencyHistograms)
	setInt(&cfg.Audit.BufferSize, file.Audit.BufferSize)
	setInt(&cfg.Audit.Retention, file.Audit.Retention)

	if err := setDuration(&cfg.Session.MaxLifetime, "session.maxLifetime", file.Session.MaxLifetime); err != nil {
		return err
	}
	if err := setDuration(&cfg.Refresh.Threshold, "refresh.threshold", file.Refresh.Threshold); err != nil {
		return err
	}
	return setDuration(&cfg.Transport.Timeout, "transport.timeout", file.Transport.Timeout)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, field string, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}
