package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all stockwatch configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Throttle   ThrottleConfig   `mapstructure:"throttle"`
	Mail       MailConfig       `mapstructure:"mail"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Server     ServerConfig     `mapstructure:"server"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite or postgres
	Path            string `mapstructure:"path"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	Migrate         bool   `mapstructure:"migrate"`
}

// RedisConfig defines the throttle store connection. When disabled the
// throttle lives in process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ThrottleConfig defines the alert cooldown.
type ThrottleConfig struct {
	TTL string `mapstructure:"ttl"`
}

// MailConfig defines SMTP settings.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// AlertsConfig defines chat and webhook integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	// RateLimit uses the limiter format, e.g. "50-S" or "1000-H". Empty disables it.
	RateLimit string `mapstructure:"rate_limit"`
}

// SchedulerConfig defines the fallback scan schedule.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
	Debug   bool   `mapstructure:"debug"`
}

// QueueConfig defines the event worker pool.
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	Size    int `mapstructure:"size"`
}

// MonitoringConfig is the initial alert scope. It can be changed at runtime
// through the settings API.
type MonitoringConfig struct {
	Active     bool     `mapstructure:"active"`
	Warehouses []string `mapstructure:"warehouses"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a .env file, the config file and environment
// variables, in increasing precedence.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".stockwatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".stockwatch", "stockwatch.db"))
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "30m")
	v.SetDefault("storage.migrate", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("throttle.ttl", "1h")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "stockwatch@localhost")
	v.SetDefault("alerts.slack.channel", "#inventory")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.rate_limit", "50-S")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "@hourly")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 256)
	v.SetDefault("monitoring.active", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("STOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if _, err := c.ThrottleTTL(); err != nil {
		return err
	}
	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("mail.host is required when mail is enabled")
	}
	return nil
}

// ThrottleTTL parses the cooldown window.
func (c *Config) ThrottleTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Throttle.TTL)
	if err != nil {
		return 0, fmt.Errorf("parse throttle.ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("throttle.ttl must be positive, got %s", c.Throttle.TTL)
	}
	return ttl, nil
}

// Duration parses s, returning fallback when it is empty or invalid.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
