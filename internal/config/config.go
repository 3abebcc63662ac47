// Package config loads application configuration from environment
// variables, applies defaults, and validates everything on startup so
// misconfiguration fails fast.
package config

import (
	"fmt"
	"time"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8111, the port the
	// service has always answered on)
	Port int `env:"SERVER_PORT" default:"8111"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 15s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the per-request middleware timeout (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds connection settings for the postgres backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Both DATABASE_URL and
	// DB_URL are accepted.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"postgres://localhost/museum?sslmode=disable"`

	// MaxConns is the connection pool ceiling (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the number of connections kept open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime closes connections idle longer than this (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StoreConfig selects and tunes the storage backend.
type StoreConfig struct {
	// Backend is one of "postgres", "sqlite", "memory" (default: postgres)
	Backend string `env:"STORE_BACKEND" default:"postgres"`

	// SQLitePath is the snapshot file for the sqlite backend (default: museum.db)
	SQLitePath string `env:"STORE_SQLITE_PATH" default:"museum.db"`

	// OperationTimeout bounds each mutator or view call (default: 5s)
	OperationTimeout time.Duration `env:"STORE_OPERATION_TIMEOUT" default:"5s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks cross-field constraints the tag loader cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres, sqlite or memory, got %q", c.Store.Backend)
	}
	if c.Store.OperationTimeout <= 0 {
		return fmt.Errorf("STORE_OPERATION_TIMEOUT must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}
