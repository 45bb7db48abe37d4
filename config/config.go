package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HttpPort     uint16 `envconfig:"CLINIC_HTTP_SERVER_PORT" default:"8080" required:"true"`
	Timezone     string `envconfig:"CLINIC_TIMEZONE" default:"Asia/Shanghai"`
	ScanWorkers  int    `envconfig:"CLINIC_BEHAVIOR_SCAN_WORKERS" default:"1"`
	TodoTopLimit int    `envconfig:"CLINIC_TODO_TOP_LIMIT" default:"3"`
	AuthSecret   string `envconfig:"CLINIC_AUTH_SECRET"`
}

func New() *Config {
	return &Config{}
}

func NewFromEnv() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromEnv() error {
	return envconfig.Process("", c)
}

// Location returns the clinic's local timezone. Calendar days for task scheduling and the
// to-do date filters are evaluated in this location.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
