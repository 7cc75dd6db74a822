package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/storage"
	"github.com/marco/recofilms/internal/watchlater"
)

// Environment variables that override the file.
const (
	EnvAPIURL        = "RECOFILMS_API_URL"
	EnvStorageDriver = "RECOFILMS_STORAGE_DRIVER"
	EnvStoragePath   = "RECOFILMS_STORAGE_PATH"
	EnvRedisURL      = "RECOFILMS_REDIS_URL"
	EnvMetricsAddr   = "RECOFILMS_METRICS_ADDR"
	EnvLogLevel      = "LOG_LEVEL"
)

// ErrMissingBaseURL is returned when the file blanks out the API URL.
var ErrMissingBaseURL = errors.New("api.base_url is required")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Recommend RecommendConfig `yaml:"recommend"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL          string        `yaml:"base_url" validate:"required,url"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
	RateLimitDelayMs int           `yaml:"rate_limit_delay_ms" validate:"gte=0"`
	CircuitBreaker   bool          `yaml:"circuit_breaker"`
}

// CacheConfig holds the in-process cache settings
type CacheConfig struct {
	DetailsSize int           `yaml:"details_size" validate:"gte=0"`
	DetailsTTL  time.Duration `yaml:"details_ttl" validate:"gte=0"`
	GenresTTL   time.Duration `yaml:"genres_ttl" validate:"gte=0"`
}

// StorageConfig selects where the watch-later list is kept
type StorageConfig struct {
	storage.Config `yaml:",inline"`
	SlotKey        string `yaml:"slot_key" validate:"required"`
}

// SearchConfig holds debounce delays in milliseconds
type SearchConfig struct {
	DebounceMs      int `yaml:"debounce_ms" validate:"gte=0"`
	ActorDebounceMs int `yaml:"actor_debounce_ms" validate:"gte=0"`
}

// RecommendConfig holds recommendation settings
type RecommendConfig struct {
	TopK int `yaml:"top_k" validate:"min=1,max=50"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `yaml:"caller"`
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dataDir := ".recofilms"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".recofilms")
	}

	return &Config{
		API: APIConfig{
			BaseURL: catalog.DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			DetailsSize: 512,
			DetailsTTL:  time.Hour,
			GenresTTL:   24 * time.Hour,
		},
		Storage: StorageConfig{
			Config:  storage.Config{Driver: "sqlite", Path: filepath.Join(dataDir, "recofilms.db")},
			SlotKey: watchlater.SlotKey,
		},
		Search: SearchConfig{
			DebounceMs:      500,
			ActorDebounceMs: 300,
		},
		Recommend: RecommendConfig{TopK: 20},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the configuration file at path over the defaults, then
// applies .env and environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug().Msg("Loaded .env file")
	}

	cfg := Default()

	if path != "" {
		// Expand ~ to home directory if present
		if path[0] == '~' {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, path[1:])
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Driver == "redis" && c.Storage.RedisURL == "" {
		return fmt.Errorf("invalid config: storage.redis_url is required for the redis driver (or set %s)", EnvRedisURL)
	}
	return nil
}

// ClientConfig returns the backend client settings.
func (c *Config) ClientConfig() catalog.ClientConfig {
	return catalog.ClientConfig{
		BaseURL:          c.API.BaseURL,
		Timeout:          c.API.Timeout,
		RateLimitDelayMs: c.API.RateLimitDelayMs,
		CircuitBreaker:   c.API.CircuitBreaker,
	}
}

// CacheConfig returns the catalog cache settings.
func (c *Config) CacheConfig() catalog.CacheConfig {
	return catalog.CacheConfig{
		DetailsSize: c.Cache.DetailsSize,
		DetailsTTL:  c.Cache.DetailsTTL,
		GenresTTL:   c.Cache.GenresTTL,
	}
}

// LoggingConfig returns the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Log.Level != "" {
		cfg.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	cfg.Caller = c.Log.Caller
	return cfg
}

// MovieSearchDelay returns the movie search debounce delay.
func (c *Config) MovieSearchDelay() time.Duration {
	return time.Duration(c.Search.DebounceMs) * time.Millisecond
}

// ActorSearchDelay returns the actor autocomplete debounce delay.
func (c *Config) ActorSearchDelay() time.Duration {
	return time.Duration(c.Search.ActorDebounceMs) * time.Millisecond
}

// String renders the effective configuration for the status command.
func (c *Config) String() string {
	return "api=" + c.API.BaseURL +
		" storage=" + c.Storage.Driver +
		" top_k=" + strconv.Itoa(c.Recommend.TopK)
}
