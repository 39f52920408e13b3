// Package config loads deployment settings from an optional YAML file,
// then applies environment overrides.
//
// Environment variables:
//
//	TENDER_TAX_RATE:          tax rate applied to bid subtotals, e.g. 0.10
//	TENDER_DB_PATH:           SQLite database file
//	TENDER_ALLOW_EARLY_AWARD: true to allow awarding open tenders
//	TENDER_SIGNING_KEY:       PEM file holding the award receipt signing key
//	LOG_LEVEL:                debug, info, warn, error
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/logging"
)

// Config holds the settings of one deployment: a single currency, one tax
// rate and one set of scoring weights.
type Config struct {
	TaxRate         string              `yaml:"tax_rate"`
	Weights         core.ScoringWeights `yaml:"weights"`
	AllowEarlyAward bool                `yaml:"allow_early_award"`
	DatabasePath    string              `yaml:"database_path"`
	SigningKeyPath  string              `yaml:"signing_key_path"`
	LogLevel        string              `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TaxRate:      core.DefaultTaxRate.String(),
		Weights:      core.DefaultWeights(),
		DatabasePath: "data/tender.db",
		LogLevel:     "info",
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode rejects unknown keys so a misspelt weight is not silently ignored.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TENDER_TAX_RATE"); v != "" {
		c.TaxRate = v
		slog.Info("using config from environment", "key", "TENDER_TAX_RATE", "value", v)
	}
	if v := os.Getenv("TENDER_DB_PATH"); v != "" {
		c.DatabasePath = v
		slog.Info("using config from environment", "key", "TENDER_DB_PATH", "value", v)
	}
	if v := os.Getenv("TENDER_ALLOW_EARLY_AWARD"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for TENDER_ALLOW_EARLY_AWARD: %s (must be true or false)", v)
		}
		c.AllowEarlyAward = allow
		slog.Info("using config from environment", "key", "TENDER_ALLOW_EARLY_AWARD", "value", allow)
	}
	if v := os.Getenv("TENDER_SIGNING_KEY"); v != "" {
		c.SigningKeyPath = v
		slog.Info("using config from environment", "key", "TENDER_SIGNING_KEY", "value", v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the tax rate and scoring weights once, at startup.
func (c *Config) Validate() error {
	if _, err := c.Pricer(); err != nil {
		return err
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database_path is required", core.ErrInvalidInput)
	}
	return nil
}

// TaxRateDecimal parses the configured tax rate.
func (c *Config) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: tax_rate %q is not a number", core.ErrInvalidInput, c.TaxRate)
	}
	return rate, nil
}

// Pricer builds the pricer for the configured tax rate.
func (c *Config) Pricer() (*core.Pricer, error) {
	rate, err := c.TaxRateDecimal()
	if err != nil {
		return nil, err
	}
	return core.NewPricer(rate)
}

// Scorer builds the scorer for the configured weights.
func (c *Config) Scorer() (*core.Scorer, error) {
	return core.NewScorer(c.Weights)
}

// AwardPolicy returns the configured award policy.
func (c *Config) AwardPolicy() core.AwardPolicy {
	return core.AwardPolicy{AllowEarlyAward: c.AllowEarlyAward}
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	return logging.ParseLevel(c.LogLevel)
}
