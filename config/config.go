// Package config loads CreatorLedger's configuration: the Postgres DSN and
// pool settings, and the vault backend selection. No command in this
// module consumes it directly yet — it exists for an embedding host
// process, the way control-plane/internal/config served that service's
// HTTP server.
//
// Adapted from control-plane/internal/config/config.go's viper.New +
// SetEnvPrefix + defaults shape.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for an embedding CreatorLedger process.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Vault    VaultConfig    `mapstructure:"vault"`
}

// DatabaseConfig holds PostgreSQL connection settings for storage.Postgres.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// VaultConfig selects and configures the secret vault backend.
type VaultConfig struct {
	// Variant is one of "auto", "file", "linux", "macos", "memory".
	Variant  string `mapstructure:"variant"`
	FileBase string `mapstructure:"file_base"`
}

// Load reads configuration from environment variables prefixed
// CREATORLEDGER_, a config file (if present), and built-in defaults, in that
// order of decreasing priority.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/creatorledger")

	v.SetEnvPrefix("CREATORLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "creatorledger")
	v.SetDefault("database.password", "creatorledger")
	v.SetDefault("database.database", "creatorledger")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("vault.variant", "auto")
	v.SetDefault("vault.file_base", "")
}
