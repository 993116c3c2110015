package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/config"
)

func newViper(t *testing.T, content string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetViperDefaults(v)

	if content != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoad(t *testing.T) {
	t.Parallel()

	v := newViper(t, `
debug: true
mongo:
  uri: "mongodb://mongo:27017"
  database: "registry"
  connect_timeout: 3s
redis:
  enabled: true
  address: "redis:6379"
  db: 2
`)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, config.BackendMongo, cfg.Store.Backend)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, "registry", cfg.Mongo.Database)
	assert.Equal(t, 3*time.Second, cfg.Mongo.ConnectTimeout)
	assert.Equal(t, 5, cfg.Mongo.RetryAttempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "scan_registry", cfg.Mongo.Database)
	assert.Equal(t, 10*time.Second, cfg.Mongo.ConnectTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MONGO_DATABASE", "from_env")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := config.Load(newViper(t, "mongo:\n  database: from_file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Mongo.Database)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		cfg := config.Config{}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*config.Config) {}},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Store.Backend = "sqlite" }, wantErr: "store.backend"},
		{name: "negative timeout", mutate: func(c *config.Config) { c.Mongo.ConnectTimeout = -time.Second }, wantErr: "connect_timeout"},
		{name: "memory skips mongo checks", mutate: func(c *config.Config) {
			c.Store.Backend = config.BackendMemory
			c.Mongo.URI = ""
		}},
		{name: "redis enabled without address", mutate: func(c *config.Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}, wantErr: "redis.address"},
		{name: "bad log level", mutate: func(c *config.Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
