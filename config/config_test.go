package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.True(t, cfg.Database.InitSchema)
				assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
				assert.NotEmpty(t, cfg.Auth.JWTSecretKey)
				assert.NotEmpty(t, cfg.Auth.PasswordPepper)
				assert.Equal(t, RenderCacheBackendPostgres, cfg.RenderCache.Backend)
				assert.Equal(t, 10, cfg.RenderCache.Capacity)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT":     "production",
				"DATABASE_URL":    "postgres://u:p@db.example.com:5433/receipts",
				"JWT_SECRET_KEY":  "s3cret",
				"JWT_ALGORITHM":   "HS512",
				"PASSWORD_PEPPER": "pepper",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.Database.InitSchema)
				assert.Equal(t, "s3cret", cfg.Auth.JWTSecretKey)
				assert.Equal(t, "HS512", cfg.Auth.JWTAlgorithm)
				assert.Equal(t, "host=db.example.com port=5433 database=receipts", cfg.Database.LogString())
			},
		},
		{
			name: "redis render cache",
			envVars: map[string]string{
				"RENDER_CACHE_BACKEND":  "Redis",
				"RENDER_CACHE_CAPACITY": "25",
				"REDIS_ADDR":            "cache:6379",
				"CORS_ALLOWED_ORIGINS":  "https://a.example, https://b.example",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, RenderCacheBackendRedis, cfg.RenderCache.Backend)
				assert.Equal(t, 25, cfg.RenderCache.Capacity)
				assert.Equal(t, "cache:6379", cfg.Redis.Addr)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "production without secrets",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "unsupported algorithm",
			envVars: map[string]string{
				"JWT_ALGORITHM": "RS256",
			},
			wantErr: true,
		},
		{
			name: "unknown cache backend",
			envVars: map[string]string{
				"RENDER_CACHE_BACKEND": "memcached",
			},
			wantErr: true,
		},
		{
			name: "zero cache capacity",
			envVars: map[string]string{
				"RENDER_CACHE_CAPACITY": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth: AuthConfig{
			JWTSecretKey:   "secret",
			JWTAlgorithm:   "HS256",
			PasswordPepper: "pepper",
		},
		RenderCache: RenderCacheConfig{
			Backend:    RenderCacheBackendMemory,
			Capacity:   10,
			MaxRetries: 3,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database configuration required"},
		{"missing database user", func(c *Config) { c.Database.User = "" }, "database user is required"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecretKey = "" }, "JWT_SECRET_KEY"},
		{"missing pepper", func(c *Config) { c.Auth.PasswordPepper = "" }, "PASSWORD_PEPPER"},
		{"bad algorithm", func(c *Config) { c.Auth.JWTAlgorithm = "none" }, "JWT_ALGORITHM"},
		{"redis without address", func(c *Config) {
			c.RenderCache.Backend = RenderCacheBackendRedis
			c.Redis.Addr = ""
		}, "REDIS_ADDR"},
		{"negative capacity", func(c *Config) { c.RenderCache.Capacity = -1 }, "capacity"},
		{"missing log level", func(c *Config) { c.Observability.LogLevel = "" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	assert.True(t, (&Config{Environment: "dev"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "production"}).IsDevelopment())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())

	withURL := DatabaseConfig{ConnectionString: "postgres://x"}
	assert.Equal(t, "postgres://x", withURL.DSN())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8000}
	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", " a, ,b ")
	assert.Equal(t, []string{"a", "b"}, getEnvAsList("TEST_LIST", nil))

	os.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))
}
