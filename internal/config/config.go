package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// History drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Status resolvers.
const (
	ResolverNone        = "none"
	ResolverPhoneLength = "phone_length"
)

// Config holds the contactdex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Search   SearchConfig   `yaml:"search"`
	Index    IndexConfig    `yaml:"index"`
	Recovery RecoveryConfig `yaml:"recovery"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds query execution limits and recovery tuning.
type SearchConfig struct {
	DefaultTimeoutMs     int    `yaml:"default_timeout_ms"`
	DefaultPageSize      int    `yaml:"default_page_size"`
	MaxPageSize          int    `yaml:"max_page_size"`
	ProgressiveBatchSize int    `yaml:"progressive_batch_size"`
	IDPrefix             string `yaml:"id_prefix"`
	MaxFallbackResults   int    `yaml:"max_fallback_results"`
	RetryBaseDelayMs     int    `yaml:"retry_base_delay_ms"`
	MaxRetries           int    `yaml:"max_retries"`
	StatusResolver       string `yaml:"status_resolver"` // none, phone_length (default: none)
}

// DefaultTimeout returns the default search budget.
func (s SearchConfig) DefaultTimeout() time.Duration {
	return time.Duration(s.DefaultTimeoutMs) * time.Millisecond
}

// RetryBaseDelay returns the base backoff delay.
func (s SearchConfig) RetryBaseDelay() time.Duration {
	return time.Duration(s.RetryBaseDelayMs) * time.Millisecond
}

// IndexConfig holds index build settings.
type IndexConfig struct {
	BuildWorkers int    `yaml:"build_workers"`
	SeedFile     string `yaml:"seed_file"` // optional JSON array of records loaded at startup
}

// RecoveryConfig holds error recovery settings.
type RecoveryConfig struct {
	HistoryCapacity int `yaml:"history_capacity"`
}

// HistoryConfig holds search history storage settings.
type HistoryConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, badger (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"`
	KeyPrefix        string   `yaml:"key_prefix"`
	MaxEntries       int      `yaml:"max_entries"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, substituting ${VAR} references, and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	s := &c.Search
	if s.DefaultTimeoutMs <= 0 {
		s.DefaultTimeoutMs = 5000
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = 20
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = 200
	}
	if s.ProgressiveBatchSize <= 0 {
		s.ProgressiveBatchSize = 50
	}
	if s.IDPrefix == "" {
		s.IDPrefix = "SG COM"
	}
	if s.MaxFallbackResults <= 0 {
		s.MaxFallbackResults = 1000
	}
	if s.RetryBaseDelayMs <= 0 {
		s.RetryBaseDelayMs = 1000
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 2
	}
	if s.StatusResolver == "" {
		s.StatusResolver = ResolverNone
	}

	if c.Index.BuildWorkers <= 0 {
		c.Index.BuildWorkers = max(runtime.NumCPU()/2, 1)
	}
	if c.Recovery.HistoryCapacity <= 0 {
		c.Recovery.HistoryCapacity = 100
	}

	h := &c.History
	if h.Driver == "" {
		h.Driver = DriverMemory
	}
	if h.KeyPrefix == "" {
		h.KeyPrefix = "contactdex"
	}
	if h.MaxEntries <= 0 {
		h.MaxEntries = 500
	}
	if h.ReadinessTimeout <= 0 {
		h.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	switch c.Search.StatusResolver {
	case ResolverNone, ResolverPhoneLength:
	default:
		return fmt.Errorf("search.status_resolver must be one of none, phone_length, got %q", c.Search.StatusResolver)
	}
	switch c.History.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.History.Addrs) == 0 {
			return fmt.Errorf("history.addrs is required for the redis driver")
		}
	case DriverBadger:
		if c.History.Path == "" {
			return fmt.Errorf("history.path is required for the badger driver")
		}
	default:
		return fmt.Errorf("history.driver must be one of memory, redis, badger, got %q", c.History.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
