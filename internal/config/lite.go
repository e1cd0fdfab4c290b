// Package config provides configuration management for the phenotype server.
// This file contains the lightweight configuration for the MCP binary, which
// runs standalone with no external databases.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified, environment-only configuration for the MCP
// server binary. It requires no config file and no external services.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the SQLite review store and exports

	// Cache settings
	CacheMaxItems int           // Maximum items in the guideline lookup cache
	CacheTTL      time.Duration // Default cache TTL

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".oncosaferx-phenotype")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables, falling
// back to defaults for anything unset.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("ONCOSAFERX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("ONCOSAFERX_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("ONCOSAFERX_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("ONCOSAFERX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ONCOSAFERX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ReviewDBPath returns the path to the SQLite review history database.
func (c *LiteConfig) ReviewDBPath() string {
	return filepath.Join(c.DataDir, "reviews.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
