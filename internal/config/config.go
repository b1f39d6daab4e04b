package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	PublicBaseURL  string        `yaml:"public_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	RateLimit      int           `yaml:"rate_limit"` // requests per minute per client on /api/v1, 0 disables
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory|postgres|sqlite
	Cache  bool   `yaml:"cache"`  // redis read-through in front of the store
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ProcessorConfig struct {
	Mode            string        `yaml:"mode"` // simulated|http
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ConcurrentLimit int           `yaml:"concurrent_limit"`
}

type UploaderConfig struct {
	BaseURL string        `yaml:"base_url"` // empty keeps CSV uploads local and disables video uploads
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type OrchestratorConfig struct {
	Workers         int           `yaml:"workers"`
	Stagger         time.Duration `yaml:"stagger"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	RetainedBatches int           `yaml:"retained_batches"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

type FeedConfig struct {
	URL string `yaml:"url"` // ws(s):// push feed, empty disables
}

type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

type AuthConfig struct {
	Secret string        `yaml:"secret"` // empty disables bearer auth
	TTL    time.Duration `yaml:"ttl"`
}

type Config struct {
	Log          LogConfig          `yaml:"log"`
	HTTP         HTTPConfig         `yaml:"http"`
	Store        StoreConfig        `yaml:"store"`
	Database     DatabaseConfig     `yaml:"database"`
	SQLite       SQLiteConfig       `yaml:"sqlite"`
	Redis        RedisConfig        `yaml:"redis"`
	Processor    ProcessorConfig    `yaml:"processor"`
	Uploader     UploaderConfig     `yaml:"uploader"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Feed         FeedConfig         `yaml:"feed"`
	Notify       NotifyConfig       `yaml:"notify"`
	Auth         AuthConfig         `yaml:"auth"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev, then reads the yaml file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Load reads path, applies .env overrides and defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PVG_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PVG_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PVG_TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("PVG_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		cfg.HTTP.MaxUploadMB = 512
	}
	cfg.HTTP.PublicBaseURL = strings.TrimRight(cfg.HTTP.PublicBaseURL, "/")
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "prospect-videos.db"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Processor.Mode == "" {
		cfg.Processor.Mode = "simulated"
	}
	if cfg.Processor.PollInterval <= 0 {
		cfg.Processor.PollInterval = time.Second
	}
	if cfg.Processor.ConcurrentLimit <= 0 {
		cfg.Processor.ConcurrentLimit = 16
	}
	if cfg.Uploader.Timeout <= 0 {
		cfg.Uploader.Timeout = 2 * time.Minute
	}
	if cfg.Orchestrator.Workers <= 0 {
		cfg.Orchestrator.Workers = 8
	}
	if cfg.Orchestrator.Stagger <= 0 {
		cfg.Orchestrator.Stagger = 500 * time.Millisecond
	}
	if cfg.Orchestrator.JobTimeout <= 0 {
		cfg.Orchestrator.JobTimeout = 2 * time.Minute
	}
	if cfg.Orchestrator.SweepInterval <= 0 {
		cfg.Orchestrator.SweepInterval = time.Minute
	}
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 24 * time.Hour
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres store")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory|postgres|sqlite", c.Store.Driver)
	}
	if c.Store.Cache && c.Redis.URL == "" {
		return errors.New("redis.url is required when store.cache is enabled")
	}
	switch c.Processor.Mode {
	case "simulated":
	case "http":
		if c.Processor.BaseURL == "" {
			return errors.New("processor.base_url is required in http mode")
		}
	default:
		return fmt.Errorf("processor.mode %q is not one of simulated|http", c.Processor.Mode)
	}
	if c.HTTP.RateLimit > 0 && c.Redis.URL == "" {
		return errors.New("redis.url is required when http.rate_limit is set")
	}
	if c.Notify.TelegramToken != "" && c.Notify.ChatID == 0 {
		return errors.New("notify.chat_id is required with a telegram token")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
