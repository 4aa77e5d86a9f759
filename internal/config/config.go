package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// CORSOrigins lists the browser origins allowed to call the API. Empty or "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

// UpstreamConfig points at the REST API that owns projects, tasks and members.
// BaseURL already includes the /api prefix.
type UpstreamConfig struct {
	BaseURL            string        `yaml:"base_url"`
	TimeoutSeconds     int           `yaml:"timeout_seconds"`
	MaxConcurrentCalls int           `yaml:"max_concurrent_calls"`
	Breaker            BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32 `yaml:"max_requests"`
	IntervalSeconds     int    `yaml:"interval_seconds"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// DatabaseConfig is the operational store (system logs and settings only).
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// WorkerConcurrency is the number of notification jobs the worker runs at once.
	WorkerConcurrency int `yaml:"worker_concurrency"`
}

type NotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Type       string `yaml:"type"` // slack, webhook
	WebhookURL string `yaml:"webhook_url"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps"`
	AuthBurst int     `yaml:"auth_burst"`
}

// AuthConfig controls how taskdesk checks tokens on routes it answers from
// its own data (system logs, the event stream). With TokenSecret set, the
// HMAC signature is checked locally; otherwise the token is confirmed with
// the task API and the answer cached for VerifyCacheSeconds.
type AuthConfig struct {
	TokenSecret        string   `yaml:"token_secret"`
	Admins             []string `yaml:"admins"`
	VerifyCacheSeconds int      `yaml:"verify_cache_seconds"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Upstream: UpstreamConfig{
			BaseURL:            "http://localhost:8081/api",
			TimeoutSeconds:     15,
			MaxConcurrentCalls: 8,
			Breaker: BreakerConfig{
				MaxRequests:         1,
				IntervalSeconds:     60,
				TimeoutSeconds:      30,
				ConsecutiveFailures: 5,
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskdesk.db",
		},
		Redis: RedisConfig{
			Enabled:           false,
			Addr:              "localhost:6379",
			DB:                0,
			WorkerConcurrency: 4,
		},
		Notify: NotifyConfig{
			Enabled: false,
			Type:    "webhook",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   5,
			AuthBurst: 10,
		},
		Auth: AuthConfig{
			VerifyCacheSeconds: 300,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if secret := os.Getenv("AUTH_TOKEN_SECRET"); secret != "" {
		c.Auth.TokenSecret = secret
	}
	if admins := os.Getenv("AUTH_ADMINS"); admins != "" {
		c.Auth.Admins = splitList(admins)
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
	if baseURL := os.Getenv("UPSTREAM_BASE_URL"); baseURL != "" {
		c.Upstream.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout := os.Getenv("UPSTREAM_TIMEOUT_SECONDS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && n > 0 {
			c.Upstream.TimeoutSeconds = n
		}
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
	if hook := os.Getenv("NOTIFY_WEBHOOK_URL"); hook != "" {
		c.Notify.Enabled = true
		c.Notify.WebhookURL = hook
	}
	if typ := os.Getenv("NOTIFY_TYPE"); typ != "" {
		c.Notify.Type = typ
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
