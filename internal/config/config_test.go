package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-dashboard/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendFile, cfg.Sources.Backend)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, map[models.SourceName]string{
		models.SourceEnergy:    "HalfHourlyEnergyData.csv",
		models.SourceWeather:   "Weather.csv",
		models.SourceAnomalies: "HalfHourlyEnergyDataAnomalies.csv",
	}, cfg.FileNames())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8088")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("SOURCE_TIMEZONE", "UTC")
	t.Setenv("DASHBOARD_API_BASE_URL", "http://localhost:8088")
	t.Setenv("SOURCE_FETCH_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "/srv/data", cfg.Sources.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Sources.FetchTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "eighty"},
		{"SOURCE_FETCH_TIMEOUT", "soon"},
		{"SERVER_RATE_LIMIT", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RevalidateDefaultsByEnvironment(t *testing.T) {
	t.Run("development disables caching", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Zero(t, cfg.Dashboard.Revalidate)
	})

	t.Run("production revalidates every 30 minutes", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultRevalidate, cfg.Dashboard.Revalidate)
	})

	t.Run("explicit value wins in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("DASHBOARD_REVALIDATE", "5m")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, cfg.Dashboard.Revalidate)
	})
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeFile(t, `
environment = "production"

[server]
port = 9090
read_timeout = "5s"
rate_limit = 2.5
cors_origins = ["https://dash.example"]

[sources]
backend = "http"
base_url = "https://files.example/data"
timezone = "Europe/London"
max_retries = 0

[dashboard]
revalidate = "10m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://dash.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, BackendHTTP, cfg.Sources.Backend)
	assert.Equal(t, 0, cfg.Sources.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Dashboard.Revalidate)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeFile(t, "[server]\nport = 9090\n")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	bad := writeFile(t, "[server\nport = ")
	_, err = Load(bad)
	require.Error(t, err)

	badDuration := writeFile(t, "[server]\nread_timeout = \"fast\"\n")
	_, err = Load(badDuration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.read_timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Sources.Backend = "s3" },
			wantErr: "Backend",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "http backend without base url",
			mutate:  func(c *Config) { c.Sources.Backend = BackendHTTP },
			wantErr: "base_url",
		},
		{
			name: "http backend with non-http scheme",
			mutate: func(c *Config) {
				c.Sources.Backend = BackendHTTP
				c.Sources.BaseURL = "ftp://files.example"
			},
			wantErr: "base_url",
		},
		{
			name: "postgres backend without database",
			mutate: func(c *Config) {
				c.Sources.Backend = BackendPostgres
				c.Database.Database = ""
			},
			wantErr: "database",
		},
		{
			name:    "file backend without data dir",
			mutate:  func(c *Config) { c.Sources.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Sources.Timezone = "Mars/Olympus_Mons" },
			wantErr: "timezone",
		},
		{
			name:    "bad dashboard url",
			mutate:  func(c *Config) { c.Dashboard.APIBaseURL = "not a url" },
			wantErr: "APIBaseURL",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
