package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "realestate-financing", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "realestate", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "financing:lock:", cfg.Lock.KeyPrefix)
		assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
		assert.Equal(t, 5*time.Second, cfg.Lock.WaitTimeout)
		assert.Equal(t, "PEN", cfg.Financing.DefaultCurrency)
		assert.Equal(t, 360, cfg.Financing.MaxInstallments)
		assert.Equal(t, "0 3 * * *", cfg.Scheduler.OverdueSchedule)
		assert.Equal(t, cfg.App.Name, cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with RE prefix", func(t *testing.T) {
		t.Setenv("RE_APP_PORT", "9000")
		t.Setenv("RE_DATABASE_HOST", "db.internal")
		t.Setenv("RE_DATABASE_PORT", "5433")
		t.Setenv("RE_REDIS_ENABLED", "true")
		t.Setenv("RE_LOCK_TTL", "1m")
		t.Setenv("RE_FINANCING_DEFAULT_CURRENCY", "USD")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, time.Minute, cfg.Lock.TTL)
		assert.Equal(t, "USD", cfg.Financing.DefaultCurrency)
	})

	t.Run("rejects idle connections above open connections", func(t *testing.T) {
		t.Setenv("RE_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("RE_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		t.Setenv("RE_FINANCING_DEFAULT_CURRENCY", "EUR")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate_Production(t *testing.T) {
	base := func() *Config {
		cfg := &Config{App: AppConfig{Env: "production"}}
		applyDefaults(cfg)
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.JWT.Required = true
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		cfg.Redis.Enabled = true
		return cfg
	}

	require.NoError(t, base().validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "jwt.secret"},
		{"optional jwt", func(c *Config) { c.JWT.Required = false }, "jwt.required"},
		{"no db password", func(c *Config) { c.Database.Password = "" }, "database.password"},
		{"ssl disabled", func(c *Config) { c.Database.SSLMode = "disable" }, "sslmode"},
		{"in-memory locks", func(c *Config) { c.Redis.Enabled = false }, "redis.enabled"},
		{"full sql logging", func(c *Config) { c.Telemetry.DBLogFullSQL = true }, "db_log_full_sql"},
		{"lock wait above ttl", func(c *Config) { c.Lock.WaitTimeout = time.Minute }, "lock.wait_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "realestate", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/realestate?sslmode=disable", d.DSN())
}
