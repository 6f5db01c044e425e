// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ModeCLI    = "cli"
	ModeServer = "server"
	ModeBoth   = "both"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Mode  string `env:"PARKING_MODE" envDefault:"cli"`
	Port  string `env:"APP_PORT" envDefault:"8080"`
	Store string `env:"PARKING_STORE" envDefault:"memory"`
	Env   string `env:"APP_ENV" envDefault:"development"`

	DatabaseURL   string `env:"DATABASE_URL"`
	DatabaseTries uint   `env:"PARKING_DATABASE_MAX_TRIES" envDefault:"5"`
	SQLitePath    string `env:"PARKING_SQLITE_PATH" envDefault:"parking.db"`

	CarSpots  int `env:"PARKING_CAR_SPOTS" envDefault:"3"`
	BikeSpots int `env:"PARKING_BIKE_SPOTS" envDefault:"2"`

	OTelServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"parking-system"`
	OTelEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"http://localhost:4318"`
	TelemetryEnabled bool   `env:"PARKING_TELEMETRY_ENABLED" envDefault:"true"`

	ShutdownTimeout time.Duration `env:"PARKING_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Mode = normalize(cfg.Mode)
	cfg.Store = normalize(cfg.Store)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyOverrides replaces mode and port with command-line values when they are set.
func (c *Config) ApplyOverrides(mode, port string) error {
	if mode = normalize(mode); mode != "" {
		c.Mode = mode
	}
	if port = strings.TrimSpace(port); port != "" {
		c.Port = port
	}
	return c.Validate()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeCLI, ModeServer, ModeBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want cli, server or both)", c.Mode))
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("PARKING_SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, sqlite or postgres)", c.Store))
	}

	if c.CarSpots < 0 || c.BikeSpots < 0 {
		errs = append(errs, errors.New("spot counts must not be negative"))
	} else if c.CarSpots+c.BikeSpots == 0 {
		errs = append(errs, errors.New("the lot needs at least one spot"))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("APP_PORT is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
