package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bizportal/pkg/config"
)

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	Window           time.Duration `yaml:"window"`
	IntakePerWindow  int64         `yaml:"intake_per_window"`
	ContactPerWindow int64         `yaml:"contact_per_window"`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type InvoicesConfig struct {
	OverdueSweepCron string `yaml:"overdue_sweep_cron"`
}

type DashboardConfig struct {
	Port              string        `yaml:"port"`
	APIBaseURL        string        `yaml:"api_base_url"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`
	TemplatesDir      string        `yaml:"templates_dir"`
	WatchTemplates    bool          `yaml:"watch_templates"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	AuthProbeAttempts int           `yaml:"auth_probe_attempts"`
	AuthProbeDelay    time.Duration `yaml:"auth_probe_delay"`
}

type WorkerConfig struct {
	HealthPort string `yaml:"health_port"`
}

type SendgridConfig struct {
	APIKey      string `yaml:"api_key"`
	FromEmail   string `yaml:"from_email"`
	FromName    string `yaml:"from_name"`
	NotifyEmail string `yaml:"notify_email"`
	PortalURL   string `yaml:"portal_url"`
}

type Config struct {
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	CORS      CORSConfig          `yaml:"cors"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Uploads   UploadsConfig       `yaml:"uploads"`
	Invoices  InvoicesConfig      `yaml:"invoices"`
	Dashboard DashboardConfig     `yaml:"dashboard"`
	Sendgrid  SendgridConfig      `yaml:"sendgrid"`
	Worker    WorkerConfig        `yaml:"worker"`
}

// Load reads config/<CONFIG_ENV>.yaml over config/base.yaml and applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		cfg.Dashboard.APIBaseURL = url
	}
	if port := os.Getenv("DASHBOARD_PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Dashboard.Port = port
	}
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		cfg.Uploads.Dir = dir
	}
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		cfg.Sendgrid.APIKey = key
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = strings.Split(origins, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Dashboard.RefreshInterval <= 0 {
		cfg.Dashboard.RefreshInterval = 5 * time.Minute
	}
	if cfg.Dashboard.AuthProbeAttempts <= 0 {
		cfg.Dashboard.AuthProbeAttempts = 5
	}
	if cfg.Dashboard.AuthProbeDelay <= 0 {
		cfg.Dashboard.AuthProbeDelay = 500 * time.Millisecond
	}
	if cfg.Dashboard.SessionTTL <= 0 {
		cfg.Dashboard.SessionTTL = 12 * time.Hour
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Hour
	}
	if cfg.Uploads.MaxBytes <= 0 {
		cfg.Uploads.MaxBytes = 25 << 20
	}
	if cfg.Invoices.OverdueSweepCron == "" {
		cfg.Invoices.OverdueSweepCron = "0 2 * * *"
	}
	if cfg.Worker.HealthPort == "" {
		cfg.Worker.HealthPort = ":8085"
	}
	if cfg.JWT.TTL <= 0 {
		cfg.JWT.TTL = 24 * time.Hour
	}
}
