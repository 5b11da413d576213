package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// StoreBackend keeps trades in the hosted backend-as-a-service.
	StoreBackend = "backend"
	// StoreSQLite keeps trades in a local SQLite file.
	StoreSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Backend  Backend  `mapstructure:"backend"`
	Store    Store    `mapstructure:"store"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Trace    Trace    `mapstructure:"trace"`
}

// Backend holds the configuration for the hosted auth/database service.
type Backend struct {
	URL            string  `mapstructure:"url"`
	AnonKey        string  `mapstructure:"anon_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Store selects where trades are persisted.
type Store struct {
	Driver     string `mapstructure:"driver"`
	LocalOwner string `mapstructure:"local_owner"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the local database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Trace toggles span export.
type Trace struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, if present, is loaded first so its
// values can override the config file.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("store.driver", StoreBackend)
	v.SetDefault("store.local_owner", "local")
	v.SetDefault("database.dsn", "journal.sqlite")
	v.SetDefault("backend.rate_limit", 10) // requests per second
	v.SetDefault("backend.rate_limit_burst", 5)
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.service_name", "forex-journal")
}

// Validate checks the settings the selected store needs.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreBackend:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required for the %q store", StoreBackend)
		}
		if c.Backend.AnonKey == "" {
			return fmt.Errorf("backend.anon_key is required for the %q store", StoreBackend)
		}
	case StoreSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %q store", StoreSQLite)
		}
		if c.Store.LocalOwner == "" {
			return fmt.Errorf("store.local_owner is required for the %q store", StoreSQLite)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
