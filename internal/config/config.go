package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"futmap/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Session    SessionConfig    `yaml:"session"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
}

type CatalogConfig struct {
	// SeedPath points to a YAML or TOML file with fields; empty uses built-in demo data.
	SeedPath string `yaml:"seed_path"`
}

type LedgerConfig struct {
	RestoreSlotOnCancel bool   `yaml:"restore_slot_on_cancel"`
	DefaultStatus       string `yaml:"default_status"`
	Timezone            string `yaml:"timezone"`
}

type SessionConfig struct {
	Namespace string      `yaml:"namespace"`
	Backend   string      `yaml:"backend"` // memory, sqlite, redis
	Timeout   int         `yaml:"timeout_seconds"`
	Retry     RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	BackoffFactor  float64 `yaml:"backoff_factor"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads the YAML config, expanding ${VAR} references from the
// environment and an optional .env file.
func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Default returns a config with only defaults applied: in-memory session,
// built-in catalog, no servers.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("session.backend=sqlite requires database.path")
		}
	case "redis":
		if c.Redis.Address == "" {
			return errors.New("session.backend=redis requires redis.address")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	if !models.BookingStatus(c.Ledger.DefaultStatus).Valid() || c.Ledger.DefaultStatus == string(models.StatusCancelled) {
		return fmt.Errorf("invalid ledger.default_status %q", c.Ledger.DefaultStatus)
	}

	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("invalid ledger.timezone: %w", err)
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when bot_token is set")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

// Location returns the ledger's timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Session.Timeout) * time.Second
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "futmap"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Ledger.DefaultStatus == "" {
		c.Ledger.DefaultStatus = string(models.StatusConfirmed)
	}
	if c.Ledger.Timezone == "" {
		c.Ledger.Timezone = "Local"
	}

	if c.Session.Namespace == "" {
		c.Session.Namespace = models.DefaultSessionNamespace
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
		if c.Database.Path != "" {
			c.Session.Backend = "sqlite"
		}
	}
	if c.Session.Timeout == 0 {
		c.Session.Timeout = models.DefaultStoreTimeout
	}
	if c.Session.Retry.MaxRetries == 0 {
		c.Session.Retry.MaxRetries = 3
	}
	if c.Session.Retry.InitialDelayMS == 0 {
		c.Session.Retry.InitialDelayMS = 100
	}
	if c.Session.Retry.MaxDelayMS == 0 {
		c.Session.Retry.MaxDelayMS = 2000
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
