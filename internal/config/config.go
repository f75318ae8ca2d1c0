package config

import (
	"errors"
	"fmt"
	"os"
	"time"

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

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	ZaloPay struct {
		AppID       string        `yaml:"app_id"`
		Key1        string        `yaml:"key1"` // outbound order authentication
		Key2        string        `yaml:"key2"` // inbound callback authentication
		Endpoint    string        `yaml:"endpoint"`
		CallbackURL string        `yaml:"callback_url"`
		RedirectURL string        `yaml:"redirect_url"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"zalopay"`
	AllowSimulation bool `yaml:"allow_simulation"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"` // empty -> log-only notifier
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Notify     NotifyConfig     `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Payment.ZaloPay.Endpoint == "" {
		cfg.Payment.ZaloPay.Endpoint = "https://openapi.zalopay.vn"
	}
	if cfg.Payment.ZaloPay.Timeout <= 0 {
		cfg.Payment.ZaloPay.Timeout = 15 * time.Second
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.ZaloPay.AppID == "" {
		return nil, errors.New("payment.zalopay.app_id is required")
	}
	if cfg.Payment.ZaloPay.Key1 == "" || cfg.Payment.ZaloPay.Key2 == "" {
		return nil, errors.New("payment.zalopay.key1 and key2 are required")
	}
	if cfg.Payment.ZaloPay.Key1 == cfg.Payment.ZaloPay.Key2 {
		return nil, errors.New("payment.zalopay.key1 and key2 must differ")
	}

	// Simulation is never allowed outside dev deployments.
	if cfg.Payment.AllowSimulation && !dev {
		return nil, errors.New("payment.allow_simulation requires -dev")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
