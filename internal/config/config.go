package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	API struct {
		Port               int     `yaml:"port"`
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
		CatalogCacheTTL    int     `yaml:"catalog_cache_ttl_seconds"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduler struct {
		HeartbeatStalenessMinutes int `yaml:"heartbeat_staleness_minutes"`
		GuestCapHours             int `yaml:"guest_cap_hours"`
	} `yaml:"scheduler"`

	FleetConfigPath string `yaml:"fleet_config_path"`
}

func Load(path string) (*Config, error) {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/skydish.db"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.FleetConfigPath == "" {
		cfg.FleetConfigPath = "configs/fleet.yaml"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// HeartbeatStaleness is how old a telescope heartbeat may be before the
// engine refuses new pointing appointments.
func (c *Config) HeartbeatStaleness() time.Duration {
	if c.Scheduler.HeartbeatStalenessMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Scheduler.HeartbeatStalenessMinutes) * time.Minute
}

// GuestCap is the fixed time allotment seeded for guest-tier users.
func (c *Config) GuestCap() time.Duration {
	if c.Scheduler.GuestCapHours <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Scheduler.GuestCapHours) * time.Hour
}

// CatalogCacheTTL bounds how long catalog search results may be served
// from cache.
func (c *Config) CatalogCacheTTL() time.Duration {
	if c.API.CatalogCacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.API.CatalogCacheTTL) * time.Second
}
