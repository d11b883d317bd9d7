// Package config loads dddlint configuration from .dddlint/config.yaml with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all dddlint configuration.
type Config struct {
	Name string `yaml:"name"`

	// Scan configures source discovery.
	Scan ScanConfig `yaml:"scan"`

	// Rules configures the catalog.
	Rules RulesConfig `yaml:"rules"`

	// Analysis configures evaluation.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Store configures run history persistence.
	Store StoreConfig `yaml:"store"`

	// Logging mirrors internal/logging's view of the same file.
	Logging LoggingConfig `yaml:"logging"`
}

// ScanConfig configures the source scanner.
type ScanConfig struct {
	// Exclude lists directory names to skip in addition to the builtin set.
	Exclude []string `yaml:"exclude"`
}

// RulesConfig tunes the rule catalog.
type RulesConfig struct {
	// Disabled lists rule IDs to drop from the catalog.
	Disabled []string `yaml:"disabled"`
	// Severity overrides rule severities by ID, e.g. EVT001: high.
	Severity map[string]string `yaml:"severity"`
}

// AnalysisConfig configures evaluation.
type AnalysisConfig struct {
	// Workers is the evaluation fan-out; 1 means sequential.
	Workers int `yaml:"workers"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	// Path to the SQLite file. Relative paths resolve under the workspace.
	Path string `yaml:"path"`
	// Disabled turns persistence off entirely.
	Disabled bool `yaml:"disabled"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Name: "dddlint",
		Analysis: AnalysisConfig{
			Workers: 4,
		},
		Store: StoreConfig{
			Path: filepath.Join(".dddlint", "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .dddlint/config.yaml under the workspace, falling back to
// defaults when the file does not exist, then applies environment overrides.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".dddlint", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.Analysis.Workers < 1 {
		cfg.Analysis.Workers = 1
	}
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(workspace, cfg.Store.Path)
	}
	return cfg, nil
}

// applyEnvOverrides lets DDDLINT_* variables win over the file. Useful in CI
// where editing the workspace config is not an option.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DDDLINT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DDDLINT_STORE_DISABLED"); v != "" {
		cfg.Store.Disabled = v == "1" || v == "true"
	}
	if v := os.Getenv("DDDLINT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.Workers = n
		}
	}
	if v := os.Getenv("DDDLINT_DEBUG"); v != "" {
		cfg.Logging.DebugMode = v == "1" || v == "true"
	}
	if v := os.Getenv("DDDLINT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
