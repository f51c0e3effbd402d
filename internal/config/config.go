// Package config loads the ingestion API configuration from the
// environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// AuthConfig holds the shared secret presented by the receiver Lambda.
type AuthConfig struct {
	SharedSecret string
}

// InboxConfig holds ingestion behavior settings.
type InboxConfig struct {
	// CodeTTL is how long a stored verification code stays retrievable.
	CodeTTL time.Duration
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string
}

// Config is the root configuration for the ingestion API.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Inbox    InboxConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
}

// Load reads configuration with environment variables taking precedence
// over an optional .env file, which takes precedence over defaults. The
// environment prefix is CHIPHI_, so server.port becomes
// CHIPHI_SERVER_PORT.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	viper.SetEnvPrefix("chiphi")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("inbox.code_ttl", "10m")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("log.level", "info")

	sharedSecret := viper.GetString("auth.shared_secret")
	if sharedSecret == "" {
		return nil, fmt.Errorf("auth.shared_secret is required: set CHIPHI_AUTH_SHARED_SECRET")
	}

	dsn := viper.GetString("database.dsn")
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required: set CHIPHI_DATABASE_DSN")
	}

	codeTTL, err := time.ParseDuration(viper.GetString("inbox.code_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid inbox.code_ttl: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	return &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Auth: AuthConfig{
			SharedSecret: sharedSecret,
		},
		Inbox: InboxConfig{
			CodeTTL: codeTTL,
		},
		Database: DatabaseConfig{
			DSN:             dsn,
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
	}, nil
}
