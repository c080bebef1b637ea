// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Warden
// components.
//
// Configuration is loaded from a single YAML file specified by the
// WARDEN_CONFIG environment variable or a --config flag. There is no
// automatic discovery and environment variables never override file
// values; the only expansion performed is ${VAR} substitution in
// paths for portability. This keeps the running configuration
// deterministic and auditable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a Warden deployment.
type Config struct {
	// Paths configures data and socket locations.
	Paths PathsConfig `yaml:"paths"`

	// Admission configures image admission.
	Admission AdmissionConfig `yaml:"admission"`

	// Filter configures the syscall filter.
	Filter FilterConfig `yaml:"filter"`

	// Fault configures the fault policy.
	Fault FaultConfig `yaml:"fault"`

	// Store configures the admitted-image archive.
	Store StoreConfig `yaml:"store"`

	// Journal configures the trust decision journal.
	Journal JournalConfig `yaml:"journal"`

	// Log configures daemon logging.
	Log LogConfig `yaml:"log"`
}

// PathsConfig configures directory and socket locations.
type PathsConfig struct {
	// Root is the base directory for Warden state.
	Root string `yaml:"root"`

	// Socket is the Unix socket the daemon serves on.
	Socket string `yaml:"socket"`
}

// AdmissionConfig configures image admission.
type AdmissionConfig struct {
	// RequireCredentials rejects images with no valid credential.
	// Shipped default is true; set false explicitly to run unsigned
	// images.
	RequireCredentials bool `yaml:"require_credentials"`

	// Verifiers lists the enabled credential verifiers, by kind
	// name. Known: sha256, rsa2048.
	Verifiers []string `yaml:"verifiers"`

	// RSAPublicKey is the PEM file holding the rsa2048 verification
	// key. Empty leaves the rsa2048 verifier inert.
	RSAPublicKey string `yaml:"rsa_public_key"`

	// QueueDepth bounds the admission queue.
	QueueDepth int `yaml:"queue_depth"`
}

// FilterConfig configures the syscall filter.
type FilterConfig struct {
	// Rules is the JSONC rules file. Empty approves every syscall.
	Rules string `yaml:"rules"`
}

// FaultConfig configures the fault policy.
type FaultConfig struct {
	// Policy selects the fault response: threshold, always-restart,
	// or panic.
	Policy string `yaml:"policy"`

	// Limit is the threshold policy's restart budget: the fault
	// whose count reaches it stops the process.
	Limit uint32 `yaml:"limit"`
}

// StoreConfig configures the admitted-image archive.
type StoreConfig struct {
	// Enabled archives every admitted image.
	Enabled bool `yaml:"enabled"`

	// Path is the store root directory.
	Path string `yaml:"path"`

	// Compression is the blob compression: none, lz4, or zstd.
	Compression string `yaml:"compression"`

	// EncryptionKey is a file holding the 32-byte store key. Empty
	// stores plaintext blobs.
	EncryptionKey string `yaml:"encryption_key"`
}

// JournalConfig configures the decision journal.
type JournalConfig struct {
	// Enabled journals every trust decision.
	Enabled bool `yaml:"enabled"`

	// Path is the journal file.
	Path string `yaml:"path"`

	// RingSize is the in-memory tail capacity.
	RingSize int `yaml:"ring_size"`

	// FlushInterval is the fsync cadence, in time.ParseDuration
	// form.
	FlushInterval string `yaml:"flush_interval"`

	// QueueDepth bounds queued disk writes.
	QueueDepth int `yaml:"queue_depth"`
}

// LogConfig configures daemon logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Known value sets for validation.
var (
	knownVerifiers    = []string{"sha256", "rsa2048"}
	knownPolicies     = []string{"threshold", "always-restart", "panic"}
	knownCompressions = []string{"none", "lz4", "zstd"}
	knownLogLevels    = []string{"debug", "info", "warn", "error"}
	knownLogFormats   = []string{"text", "json"}
)

// Default returns the shipped configuration. LoadFile unmarshals the
// file over these values, so a field the file omits keeps its
// default — which is how require_credentials stays true unless a
// file says otherwise.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "state", "warden")

	return &Config{
		Paths: PathsConfig{
			Root:   defaultRoot,
			Socket: "/run/warden/warden.sock",
		},
		Admission: AdmissionConfig{
			RequireCredentials: true,
			Verifiers:          []string{"sha256", "rsa2048"},
			QueueDepth:         8,
		},
		Fault: FaultConfig{
			Policy: "threshold",
			Limit:  3,
		},
		Store: StoreConfig{
			Enabled:     true,
			Path:        "${WARDEN_ROOT}/store",
			Compression: "lz4",
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          "${WARDEN_ROOT}/journal.wlog",
			RingSize:      256,
			FlushInterval: "1s",
			QueueDepth:    256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the WARDEN_CONFIG environment
// variable. No fallbacks: if the variable is unset, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("WARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WARDEN_CONFIG environment variable not set; " +
			"set it to the path of your warden.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults and expanding ${VAR} path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths. WARDEN_ROOT refers to the configured root, so dependent
// paths follow a relocated root automatically.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"WARDEN_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["WARDEN_ROOT"] = c.Paths.Root

	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Admission.RSAPublicKey = expandVars(c.Admission.RSAPublicKey, vars)
	c.Filter.Rules = expandVars(c.Filter.Rules, vars)
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Store.EncryptionKey = expandVars(c.Store.EncryptionKey, vars)
	c.Journal.Path = expandVars(c.Journal.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of
// them at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}

	for _, verifier := range c.Admission.Verifiers {
		if !slices.Contains(knownVerifiers, verifier) {
			errs = append(errs, fmt.Errorf("admission.verifiers: unknown verifier %q (known: %v)", verifier, knownVerifiers))
		}
	}
	if c.Admission.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("admission.queue_depth must not be negative"))
	}

	if !slices.Contains(knownPolicies, c.Fault.Policy) {
		errs = append(errs, fmt.Errorf("fault.policy must be one of: %v", knownPolicies))
	}
	if c.Fault.Policy == "threshold" && c.Fault.Limit == 0 {
		errs = append(errs, fmt.Errorf("fault.limit must be at least 1 for the threshold policy"))
	}

	if c.Store.Enabled {
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required when the store is enabled"))
		}
		if !slices.Contains(knownCompressions, c.Store.Compression) {
			errs = append(errs, fmt.Errorf("store.compression must be one of: %v", knownCompressions))
		}
	}

	if c.Journal.Enabled {
		if c.Journal.Path == "" {
			errs = append(errs, fmt.Errorf("journal.path is required when the journal is enabled"))
		}
		if c.Journal.FlushInterval != "" {
			if _, err := time.ParseDuration(c.Journal.FlushInterval); err != nil {
				errs = append(errs, fmt.Errorf("journal.flush_interval: %w", err))
			}
		}
		if c.Journal.RingSize < 0 {
			errs = append(errs, fmt.Errorf("journal.ring_size must not be negative"))
		}
	}

	if !slices.Contains(knownLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", knownLogLevels))
	}
	if !slices.Contains(knownLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", knownLogFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// FlushInterval returns the parsed journal flush interval. Call
// Validate first; an unparsable value falls back to one second here.
func (c *Config) FlushInterval() time.Duration {
	if c.Journal.FlushInterval == "" {
		return time.Second
	}
	interval, err := time.ParseDuration(c.Journal.FlushInterval)
	if err != nil {
		return time.Second
	}
	return interval
}

// EnsurePaths creates the configured directories.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		filepath.Dir(c.Paths.Socket),
	}
	if c.Store.Enabled {
		paths = append(paths, c.Store.Path)
	}
	if c.Journal.Enabled {
		paths = append(paths, filepath.Dir(c.Journal.Path))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
