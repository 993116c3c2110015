// Package config holds the scan-registry service configuration.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

const (
	defaultMongoURI       = "mongodb://localhost:27017"
	defaultMongoDatabase  = "scan_registry"
	defaultConnectTimeout = 10 * time.Second
	defaultRetryAttempts  = 5
	defaultRedisAddress   = "localhost:6379"
)

// Config is the service configuration.
type Config struct {
	Debug   bool          `mapstructure:"debug"   yaml:"debug"`
	Store   StoreConfig   `mapstructure:"store"   yaml:"store"`
	Mongo   MongoConfig   `mapstructure:"mongo"   yaml:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"   yaml:"redis"`
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"             yaml:"uri"`
	Database       string        `mapstructure:"database"        yaml:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"  yaml:"retry_attempts"`
}

// RedisConfig holds Redis connection configuration for event publishing.
type RedisConfig struct {
	Address  string `mapstructure:"address"  yaml:"address"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"` // Feature flag for event publishing
}

// SetViperDefaults registers the defaults on v so that environment variables
// are resolved for every key.
func SetViperDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("store.backend", BackendMongo)
	v.SetDefault("mongo.uri", defaultMongoURI)
	v.SetDefault("mongo.database", defaultMongoDatabase)
	v.SetDefault("mongo.connect_timeout", defaultConnectTimeout)
	v.SetDefault("mongo.retry_attempts", defaultRetryAttempts)
	v.SetDefault("redis.address", defaultRedisAddress)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("logging.level", logger.DefaultLevel)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stdout"})
}

// Load decodes the configuration held by v, fills in defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults fills in unset values.
func (c *Config) SetDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMongo
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = defaultMongoURI
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = defaultMongoDatabase
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = defaultConnectTimeout
	}
	if c.Mongo.RetryAttempts == 0 {
		c.Mongo.RetryAttempts = defaultRetryAttempts
	}
	if c.Redis.Address == "" {
		c.Redis.Address = defaultRedisAddress
	}
	// Debug forces debug logging.
	if c.Debug {
		c.Logging.Level = "debug"
	}
	c.Logging.SetDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendMongo, BackendMemory}, c.Store.Backend) {
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendMongo, BackendMemory, c.Store.Backend)
	}
	if c.Store.Backend == BackendMongo {
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required")
		}
		if c.Mongo.Database == "" {
			return errors.New("mongo.database is required")
		}
		if c.Mongo.ConnectTimeout < 0 {
			return errors.New("mongo.connect_timeout must not be negative")
		}
		if c.Mongo.RetryAttempts < 1 {
			return errors.New("mongo.retry_attempts must be positive")
		}
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis.address is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
