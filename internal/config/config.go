package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr" env:"SERVER_ADDR, overwrite"`
		CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS, overwrite"`
	} `yaml:"server"`
	Market struct {
		BaseURL            string `yaml:"base_url" env:"COINGECKO_BASE_URL, overwrite"`
		APIKey             string `yaml:"api_key" env:"COINGECKO_API_KEY, overwrite"`
		Currency           string `yaml:"currency" env:"MARKET_CURRENCY, overwrite"`
		HistoryDays        int    `yaml:"history_days" env:"MARKET_HISTORY_DAYS, overwrite"`
		RequestTimeout     string `yaml:"request_timeout" env:"MARKET_REQUEST_TIMEOUT, overwrite"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute" env:"MARKET_RATE_LIMIT, overwrite"`
	} `yaml:"market"`
	Enrichment struct {
		Concurrency int    `yaml:"concurrency" env:"ENRICH_CONCURRENCY, overwrite"`
		RefreshCron string `yaml:"refresh_cron" env:"REFRESH_CRON, overwrite"`
	} `yaml:"enrichment"`
	Storage struct {
		Driver      string `yaml:"driver" env:"STORAGE_DRIVER, overwrite"` // memory, postgres or firestore
		DatabaseURL string `yaml:"database_url" env:"DATABASE_URL, overwrite"`
	} `yaml:"storage"`
	Cache struct {
		RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR, overwrite"`
		RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD, overwrite"`
		RedisDB       int    `yaml:"redis_db" env:"REDIS_DB, overwrite"`
		PriceTTL      string `yaml:"price_ttl" env:"CACHE_PRICE_TTL, overwrite"`
		HistoryTTL    string `yaml:"history_ttl" env:"CACHE_HISTORY_TTL, overwrite"`
	} `yaml:"cache"`
	Events struct {
		NATSURL       string `yaml:"nats_url" env:"NATS_URL, overwrite"`
		SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX, overwrite"`
	} `yaml:"events"`
	History struct {
		InfluxURL    string `yaml:"influx_url" env:"INFLUXDB_URL, overwrite"`
		InfluxToken  string `yaml:"influx_token" env:"INFLUXDB_TOKEN, overwrite"`
		InfluxOrg    string `yaml:"influx_org" env:"INFLUXDB_ORG, overwrite"`
		InfluxBucket string `yaml:"influx_bucket" env:"INFLUXDB_BUCKET, overwrite"`
	} `yaml:"history"`
	Firebase struct {
		CredentialsPath string `yaml:"credentials_path" env:"FIREBASE_CREDENTIALS_PATH, overwrite"`
		CredentialsJSON string `yaml:"credentials_json" env:"FIREBASE_CREDENTIALS_JSON, overwrite"`
		ProjectID       string `yaml:"project_id" env:"FIREBASE_PROJECT_ID, overwrite"`
	} `yaml:"firebase"`
	Notifications struct {
		Cooldown string `yaml:"cooldown" env:"NOTIFY_COOLDOWN, overwrite"`
	} `yaml:"notifications"`
	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL, overwrite"`
		Format string `yaml:"format" env:"LOG_FORMAT, overwrite"`
	} `yaml:"logging"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(path, envconfig.OsLookuper())
}

// LoadWith is Load with the environment read through lookuper.
func LoadWith(path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Market.Currency == "" {
		c.Market.Currency = "inr"
	}
	c.Market.Currency = strings.ToLower(c.Market.Currency)
	if c.Market.HistoryDays == 0 {
		c.Market.HistoryDays = 30
	}
	if c.Market.RequestTimeout == "" {
		c.Market.RequestTimeout = "10s"
	}
	if c.Market.RateLimitPerMinute == 0 {
		c.Market.RateLimitPerMinute = 30
	}
	if c.Enrichment.Concurrency == 0 {
		c.Enrichment.Concurrency = 10
	}
	if c.Enrichment.RefreshCron == "" {
		c.Enrichment.RefreshCron = "0 */5 * * * *"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.PriceTTL == "" {
		c.Cache.PriceTTL = "30s"
	}
	if c.Cache.HistoryTTL == "" {
		c.Cache.HistoryTTL = "5m"
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "portfolio"
	}
	if c.History.InfluxBucket == "" {
		c.History.InfluxBucket = "portfolio"
	}
	if c.Notifications.Cooldown == "" {
		c.Notifications.Cooldown = "30m"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "firestore":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Storage.Driver == "firestore" && !c.FirebaseConfigured() {
		return fmt.Errorf("firebase credentials are required for the firestore driver")
	}
	if c.Market.HistoryDays <= 0 {
		return fmt.Errorf("market.history_days must be positive")
	}
	if c.Market.RateLimitPerMinute <= 0 {
		return fmt.Errorf("market.rate_limit_per_minute must be positive")
	}
	if c.Enrichment.Concurrency <= 0 {
		return fmt.Errorf("enrichment.concurrency must be positive")
	}
	if c.History.InfluxURL != "" && c.History.InfluxOrg == "" {
		return fmt.Errorf("history.influx_org is required when history.influx_url is set")
	}
	for name, value := range map[string]string{
		"market.request_timeout": c.Market.RequestTimeout,
		"cache.price_ttl":        c.Cache.PriceTTL,
		"cache.history_ttl":      c.Cache.HistoryTTL,
		"notifications.cooldown": c.Notifications.Cooldown,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	return nil
}

// FirebaseConfigured reports whether any Firebase credentials were supplied.
func (c *Config) FirebaseConfigured() bool {
	return c.Firebase.CredentialsPath != "" || c.Firebase.CredentialsJSON != ""
}

// RequestTimeout parses market.request_timeout, falling back to 10s.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Market.RequestTimeout, 10*time.Second)
}

// NotificationCooldown parses notifications.cooldown, falling back to 30m.
func (c *Config) NotificationCooldown() time.Duration {
	return parseDuration(c.Notifications.Cooldown, 30*time.Minute)
}

// CacheTTLs parses the price and history cache lifetimes.
func (c *Config) CacheTTLs() (price, history time.Duration) {
	return parseDuration(c.Cache.PriceTTL, 30*time.Second), parseDuration(c.Cache.HistoryTTL, 5*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
