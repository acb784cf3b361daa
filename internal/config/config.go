// Package config resolves the effective server configuration from three
// layers: process environment (highest), an optional YAML file, and
// hardcoded defaults. Resolution is deterministic and side-effect-free;
// the resolved value is immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
)

// Env looks up an environment variable, returning "" when unset
type Env func(key string) string

// USNOConfig holds remote authority client configuration
type USNOConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RemoteStoreConfig holds remote object store connection parameters
type RemoteStoreConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Bucket     string        `yaml:"bucket"`
	Prefix     string        `yaml:"prefix"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// EphemerisConfig holds local engine configuration: which prerequisite
// file to use, where to cache it, and which byte store backs the fetch
type EphemerisConfig struct {
	File     string            `yaml:"file"`
	CacheDir string            `yaml:"cache_dir"`
	Checksum string            `yaml:"checksum"`
	Storage  string            `yaml:"storage"`
	DataDir  string            `yaml:"data_dir"`
	Remote   RemoteStoreConfig `yaml:"remote"`
}

// ResultsConfig holds result cache configuration. Storage "none"
// disables the durable tier.
type ResultsConfig struct {
	Storage string            `yaml:"storage"`
	DataDir string            `yaml:"data_dir"`
	Remote  RemoteStoreConfig `yaml:"remote"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// fileConfig mirrors the YAML file layout
type fileConfig struct {
	DefaultProvider string            `yaml:"default_provider"`
	Providers       map[string]string `yaml:"providers"`
	USNO            USNOConfig        `yaml:"usno"`
	Ephemeris       EphemerisConfig   `yaml:"ephemeris"`
	Results         ResultsConfig     `yaml:"results"`
	Metrics         MetricsConfig     `yaml:"metrics"`
	Logging         LoggingConfig     `yaml:"logging"`
}

// Config is the merged, effective configuration for one process lifetime.
// It is built once at startup and never mutated afterwards; concurrent
// reads need no synchronization.
type Config struct {
	DefaultBackend model.BackendIdentity
	Overrides      map[model.OperationKind]model.BackendIdentity
	USNO           USNOConfig
	Ephemeris      EphemerisConfig
	Results        ResultsConfig
	Metrics        MetricsConfig
	Logging        LoggingConfig

	// SourceFile is the YAML file the middle layer came from, "" if none
	SourceFile string
}

// hardcodedOverrides are the per-operation defaults that apply regardless
// of the global default. The remote authority has no planet endpoints, so
// these operation kinds default to the local engine.
var hardcodedOverrides = map[model.OperationKind]model.BackendIdentity{
	model.OpPlanetPosition: model.BackendEphemeris,
	model.OpPlanetEvents:   model.BackendEphemeris,
	model.OpSkySummary:     model.BackendEphemeris,
}

// envOverrideKey maps an operation kind to its environment override name,
// e.g. moon_phases -> CELESTIAL_MOON_PHASES_PROVIDER
func envOverrideKey(op model.OperationKind) string {
	return "CELESTIAL_" + strings.ToUpper(string(op)) + "_PROVIDER"
}

// locateFile finds the declarative config file. Order: explicit path from
// CELESTIAL_CONFIG_PATH, ./celestial.yaml, ~/.config/celestio/celestial.yaml.
// First existing file wins; absence is not an error.
func locateFile(getenv Env) string {
	var candidates []string
	if p := getenv("CELESTIAL_CONFIG_PATH"); p != "" {
		candidates = append(candidates, p)
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "celestial.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "celestio", "celestial.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Resolve merges environment, optional YAML file, and hardcoded defaults
// into one immutable Config. Calling Resolve twice with unchanged inputs
// yields identical output.
func Resolve(getenv Env) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var fc fileConfig
	sourceFile := locateFile(getenv)
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return nil, celerrors.ConfigError(
				fmt.Sprintf("failed to read config file %s", sourceFile), err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, celerrors.ConfigError(
				fmt.Sprintf("failed to parse config file %s", sourceFile), err)
		}
	}

	cfg := &Config{
		USNO:       fc.USNO,
		Ephemeris:  fc.Ephemeris,
		Results:    fc.Results,
		Metrics:    fc.Metrics,
		Logging:    fc.Logging,
		SourceFile: sourceFile,
	}

	// Global default backend: env > file > hardcoded
	defaultBackend := getenv("CELESTIAL_PROVIDER")
	if defaultBackend == "" {
		defaultBackend = fc.DefaultProvider
	}
	if defaultBackend == "" {
		defaultBackend = string(model.BackendUSNO)
	}
	if !model.ValidBackendIdentity(defaultBackend) {
		return nil, celerrors.ConfigError(
			fmt.Sprintf("unknown default provider %q", defaultBackend), nil)
	}
	cfg.DefaultBackend = model.BackendIdentity(defaultBackend)

	// Per-operation overrides: env > file > hardcoded per-op default.
	// Explicit overrides (env or file) must name a registered backend that
	// supports the operation; a non-supporting backend is rejected here
	// rather than deferred to first call.
	cfg.Overrides = make(map[model.OperationKind]model.BackendIdentity, len(model.OperationKinds))
	for _, op := range model.OperationKinds {
		name, explicit := "", false
		if v := getenv(envOverrideKey(op)); v != "" {
			name, explicit = v, true
		} else if v, ok := fc.Providers[string(op)]; ok && v != "" {
			name, explicit = v, true
		}
		if explicit {
			if !model.ValidBackendIdentity(name) {
				return nil, celerrors.ConfigError(
					fmt.Sprintf("operation %s: unknown provider %q", op, name), nil)
			}
			id := model.BackendIdentity(name)
			if !model.BackendSupports(id, op) {
				return nil, celerrors.ConfigError(
					fmt.Sprintf("operation %s: provider %q does not support it", op, name),
					celerrors.NotSupported(name, string(op)))
			}
			cfg.Overrides[op] = id
			continue
		}
		if id, ok := hardcodedOverrides[op]; ok {
			cfg.Overrides[op] = id
		}
	}

	// Unlisted file providers keys are rejected so typos do not silently
	// fall through to the default
	for key := range fc.Providers {
		if !model.ValidOperationKind(key) {
			return nil, celerrors.ConfigError(
				fmt.Sprintf("unknown operation kind %q in providers section", key), nil)
		}
	}

	applyEnvSettings(cfg, getenv)
	setDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BackendFor resolves the backend identity serving an operation kind.
// Always resolves: falls back to the global default when no override exists.
func (c *Config) BackendFor(op model.OperationKind) model.BackendIdentity {
	if id, ok := c.Overrides[op]; ok {
		return id
	}
	return c.DefaultBackend
}

// applyEnvSettings layers backend-specific environment overrides on top
// of the file values
func applyEnvSettings(cfg *Config, getenv Env) {
	if v := getenv("USNO_BASE_URL"); v != "" {
		cfg.USNO.BaseURL = v
	}
	if v := getenv("USNO_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.USNO.Timeout = d
		}
	}
	if v := getenv("USNO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.USNO.MaxRetries = n
		}
	}
	if v := getenv("USNO_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.USNO.RetryDelay = d
		}
	}
	if v := getenv("EPHEMERIS_FILE"); v != "" {
		cfg.Ephemeris.File = v
	}
	if v := getenv("EPHEMERIS_CACHE_DIR"); v != "" {
		cfg.Ephemeris.CacheDir = v
	}
	if v := getenv("EPHEMERIS_CHECKSUM"); v != "" {
		cfg.Ephemeris.Checksum = v
	}
	if v := getenv("EPHEMERIS_STORAGE_BACKEND"); v != "" {
		cfg.Ephemeris.Storage = v
	}
	if v := getenv("EPHEMERIS_DATA_DIR"); v != "" {
		cfg.Ephemeris.DataDir = v
	}
	if v := getenv("EPHEMERIS_REMOTE_ENDPOINT"); v != "" {
		cfg.Ephemeris.Remote.Endpoint = v
	}
	if v := getenv("EPHEMERIS_REMOTE_BUCKET"); v != "" {
		cfg.Ephemeris.Remote.Bucket = v
	}
	if v := getenv("EPHEMERIS_REMOTE_PREFIX"); v != "" {
		cfg.Ephemeris.Remote.Prefix = v
	}
	if v := getenv("RESULTS_STORAGE_BACKEND"); v != "" {
		cfg.Results.Storage = v
	}
	if v := getenv("RESULTS_DATA_DIR"); v != "" {
		cfg.Results.DataDir = v
	}
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.USNO.BaseURL == "" {
		cfg.USNO.BaseURL = "https://aa.usno.navy.mil/api"
	}
	if cfg.USNO.Timeout == 0 {
		cfg.USNO.Timeout = 30 * time.Second
	}
	if cfg.USNO.MaxRetries == 0 {
		cfg.USNO.MaxRetries = 3
	}
	if cfg.USNO.RetryDelay == 0 {
		cfg.USNO.RetryDelay = time.Second
	}

	if cfg.Ephemeris.File == "" {
		cfg.Ephemeris.File = "de440s.bsp"
	}
	if cfg.Ephemeris.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Ephemeris.CacheDir = filepath.Join(home, ".celestio", "ephemeris")
		} else {
			cfg.Ephemeris.CacheDir = filepath.Join(os.TempDir(), "celestio-ephemeris")
		}
	}
	if cfg.Ephemeris.Storage == "" {
		cfg.Ephemeris.Storage = "remote"
	}
	if cfg.Ephemeris.Remote.Prefix == "" {
		cfg.Ephemeris.Remote.Prefix = "ephemeris/"
	}

	if cfg.Results.Storage == "" {
		cfg.Results.Storage = "none"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9184
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validate checks the merged configuration for inconsistencies
func (c *Config) validate() error {
	switch c.Ephemeris.Storage {
	case "filesystem", "memory", "remote", "s3":
	default:
		return celerrors.ConfigError(
			fmt.Sprintf("ephemeris.storage must be filesystem, memory, or remote, got %q", c.Ephemeris.Storage), nil)
	}
	switch c.Results.Storage {
	case "none", "filesystem", "memory", "remote", "s3":
	default:
		return celerrors.ConfigError(
			fmt.Sprintf("results.storage must be none, filesystem, memory, or remote, got %q", c.Results.Storage), nil)
	}
	if c.Ephemeris.Storage == "filesystem" && c.Ephemeris.DataDir == "" {
		return celerrors.ConfigError("ephemeris.data_dir is required for the filesystem backend", nil)
	}
	if c.Results.Storage == "filesystem" && c.Results.DataDir == "" {
		return celerrors.ConfigError("results.data_dir is required for the filesystem backend", nil)
	}
	if c.USNO.MaxRetries < 0 {
		return celerrors.ConfigError("usno.max_retries must not be negative", nil)
	}
	return nil
}
