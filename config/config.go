// Package config loads the service configuration from a JSON or YAML file
// with optional K_-prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/allocation"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/constraint"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/readiness"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/slotplan"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/whatif"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/mqtt"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/weather"
)

// Config is the full service configuration.
type Config struct {
	Readiness  ReadinessConfig   `json:"readiness"`
	Constraint constraint.Config `json:"constraints"`
	Allocation allocation.Config `json:"allocation"`
	Slots      slotplan.Config   `json:"slots"`
	WhatIf     whatif.Config     `json:"whatif"`
	Forecast   ForecastConfig    `json:"forecast"`
	Store      StoreConfig       `json:"store"`
	Metrics    metrics.Config    `json:"metrics"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Audit      AuditConfig       `json:"audit"`
	API        APIConfig         `json:"api"`
}

// ReadinessConfig carries the scoring weights.
type ReadinessConfig struct {
	Mileage     float64 `json:"mileage"`
	Health      float64 `json:"health"`
	Maintenance float64 `json:"maintenance"`
	Fitness     float64 `json:"fitness"`
	Branding    float64 `json:"branding"`
}

// Weights converts to the scorer's weight set, falling back to the
// defaults when all weights are zero.
func (c ReadinessConfig) Weights() readiness.Weights {
	if c.Mileage == 0 && c.Health == 0 && c.Maintenance == 0 && c.Fitness == 0 && c.Branding == 0 {
		return readiness.DefaultWeights()
	}
	return readiness.Weights{
		Mileage:     c.Mileage,
		Health:      c.Health,
		Maintenance: c.Maintenance,
		Fitness:     c.Fitness,
		Branding:    c.Branding,
	}
}

// ForecastConfig selects the context providers.
type ForecastConfig struct {
	Weather        weather.Config `json:"weather"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `json:"backend"`
	DSN     string `json:"dsn"`
}

// SetDefaults applies the in-memory backend.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the backend selection.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("store: postgres backend requires a dsn")
		}
		return nil
	default:
		return fmt.Errorf("store: unknown backend %q", c.Backend)
	}
}

// AuditConfig controls the JSONL audit trail.
type AuditConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// APIConfig controls the HTTP surface.
type APIConfig struct {
	Addr     string `json:"addr"`
	PromAddr string `json:"prom_addr"`
}

// SetDefaults applies the listen addresses.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.PromAddr == "" {
		c.PromAddr = ":2112"
	}
}

// Load reads the configuration file, applies K_ environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Store.SetDefaults()
	cfg.Slots.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the sections that can fail fast.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Slots.Validate(); err != nil {
		return err
	}
	return nil
}
