package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"energy-dashboard/internal/models"
	"energy-dashboard/pkg/database"
)

const (
	BackendFile     = "file"
	BackendHTTP     = "http"
	BackendPostgres = "postgres"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultRevalidate matches the half-hourly cadence of the data.
	DefaultRevalidate = 30 * time.Minute
)

// Config is the complete application configuration
type Config struct {
	Environment string `validate:"oneof=development production"`

	Server    ServerConfig
	Sources   SourcesConfig
	Database  DatabaseConfig
	Dashboard DashboardConfig
	Logging   LoggingConfig

	revalidateSet bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int           `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	IdleTimeout     time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RateLimit       float64       `validate:"gte=0"` // requests per second, 0 disables
	RateBurst       int           `validate:"gte=0"`
	CORSOrigins     []string
}

// SourcesConfig describes where the three CSV sources come from
type SourcesConfig struct {
	Backend      string        `validate:"oneof=file http postgres"`
	DataDir      string
	BaseURL      string        `validate:"omitempty,url"`
	EnergyFile   string        `validate:"required"`
	WeatherFile  string        `validate:"required"`
	AnomalyFile  string        `validate:"required"`
	Timezone     string        `validate:"required"`
	FetchTimeout time.Duration `validate:"gt=0"`
	MaxRetries   int           `validate:"gte=0,lte=10"`
}

// DatabaseConfig holds PostgreSQL settings for the postgres source backend
type DatabaseConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	User            string
	Password        string
	Database        string
	SSLMode         string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"gte=1"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DashboardConfig controls how the chart page obtains its data
type DashboardConfig struct {
	// APIBaseURL, when set, makes the dashboard fetch /api/energy over HTTP instead of
	// calling the merge service in-process.
	APIBaseURL   string        `validate:"omitempty,url"`
	Revalidate   time.Duration `validate:"gte=0"`
	WarmInterval time.Duration `validate:"gte=0"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       0,
			RateBurst:       20,
		},
		Sources: SourcesConfig{
			Backend:      BackendFile,
			DataDir:      "./data",
			EnergyFile:   "HalfHourlyEnergyData.csv",
			WeatherFile:  "Weather.csv",
			AnomalyFile:  "HalfHourlyEnergyDataAnomalies.csv",
			Timezone:     "UTC",
			FetchTimeout: 10 * time.Second,
			MaxRetries:   2,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Database:        "energy",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from .env, the optional CONFIG_FILE and the environment
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load applies, in order: defaults, the TOML file at path (if non-empty), .env, environment.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if !cfg.revalidateSet && cfg.Environment == EnvProduction {
		cfg.Dashboard.Revalidate = DefaultRevalidate
	}

	return cfg, nil
}

// Validate checks field ranges and backend-specific requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Sources.Backend {
	case BackendFile:
		if c.Sources.DataDir == "" {
			return errors.New("sources.data_dir is required for the file backend")
		}
	case BackendHTTP:
		u, err := url.Parse(c.Sources.BaseURL)
		if c.Sources.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.New("sources.base_url must be an http(s) URL for the http backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return errors.New("database host and name are required for the postgres backend")
		}
	}

	return nil
}

// Location resolves the time zone the source timestamps are written in
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Sources.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid sources timezone %q: %w", c.Sources.Timezone, err)
	}
	return loc, nil
}

// FileNames maps each source to its file name (or object name for the postgres backend)
func (c *Config) FileNames() map[models.SourceName]string {
	return map[models.SourceName]string{
		models.SourceEnergy:    c.Sources.EnergyFile,
		models.SourceWeather:   c.Sources.WeatherFile,
		models.SourceAnomalies: c.Sources.AnomalyFile,
	}
}

// Connection converts the database section into pool settings for pkg/database
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

type fileConfig struct {
	Environment string `toml:"environment"`
	Server      struct {
		Host            string   `toml:"host"`
		Port            int      `toml:"port"`
		ReadTimeout     string   `toml:"read_timeout"`
		WriteTimeout    string   `toml:"write_timeout"`
		IdleTimeout     string   `toml:"idle_timeout"`
		ShutdownTimeout string   `toml:"shutdown_timeout"`
		RateLimit       *float64 `toml:"rate_limit"`
		RateBurst       *int     `toml:"rate_burst"`
		CORSOrigins     []string `toml:"cors_origins"`
	} `toml:"server"`
	Sources struct {
		Backend      string `toml:"backend"`
		DataDir      string `toml:"data_dir"`
		BaseURL      string `toml:"base_url"`
		EnergyFile   string `toml:"energy_file"`
		WeatherFile  string `toml:"weather_file"`
		AnomalyFile  string `toml:"anomaly_file"`
		Timezone     string `toml:"timezone"`
		FetchTimeout string `toml:"fetch_timeout"`
		MaxRetries   *int   `toml:"max_retries"`
	} `toml:"sources"`
	Database struct {
		Host            string `toml:"host"`
		Port            int    `toml:"port"`
		User            string `toml:"user"`
		Password        string `toml:"password"`
		Database        string `toml:"database"`
		SSLMode         string `toml:"sslmode"`
		MaxOpenConns    int    `toml:"max_open_conns"`
		MaxIdleConns    *int   `toml:"max_idle_conns"`
		ConnMaxLifetime string `toml:"conn_max_lifetime"`
		ConnMaxIdleTime string `toml:"conn_max_idle_time"`
	} `toml:"database"`
	Dashboard struct {
		APIBaseURL   string `toml:"api_base_url"`
		Revalidate   string `toml:"revalidate"`
		WarmInterval string `toml:"warm_interval"`
	} `toml:"dashboard"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	setString(&c.Environment, fc.Environment)

	setString(&c.Server.Host, fc.Server.Host)
	setInt(&c.Server.Port, fc.Server.Port)
	if fc.Server.RateLimit != nil {
		c.Server.RateLimit = *fc.Server.RateLimit
	}
	if fc.Server.RateBurst != nil {
		c.Server.RateBurst = *fc.Server.RateBurst
	}
	if len(fc.Server.CORSOrigins) > 0 {
		c.Server.CORSOrigins = fc.Server.CORSOrigins
	}

	setString(&c.Sources.Backend, fc.Sources.Backend)
	setString(&c.Sources.DataDir, fc.Sources.DataDir)
	setString(&c.Sources.BaseURL, fc.Sources.BaseURL)
	setString(&c.Sources.EnergyFile, fc.Sources.EnergyFile)
	setString(&c.Sources.WeatherFile, fc.Sources.WeatherFile)
	setString(&c.Sources.AnomalyFile, fc.Sources.AnomalyFile)
	setString(&c.Sources.Timezone, fc.Sources.Timezone)
	if fc.Sources.MaxRetries != nil {
		c.Sources.MaxRetries = *fc.Sources.MaxRetries
	}

	setString(&c.Database.Host, fc.Database.Host)
	setInt(&c.Database.Port, fc.Database.Port)
	setString(&c.Database.User, fc.Database.User)
	setString(&c.Database.Password, fc.Database.Password)
	setString(&c.Database.Database, fc.Database.Database)
	setString(&c.Database.SSLMode, fc.Database.SSLMode)
	setInt(&c.Database.MaxOpenConns, fc.Database.MaxOpenConns)
	if fc.Database.MaxIdleConns != nil {
		c.Database.MaxIdleConns = *fc.Database.MaxIdleConns
	}

	setString(&c.Dashboard.APIBaseURL, fc.Dashboard.APIBaseURL)
	setString(&c.Logging.Level, fc.Logging.Level)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"server.read_timeout", fc.Server.ReadTimeout, &c.Server.ReadTimeout},
		{"server.write_timeout", fc.Server.WriteTimeout, &c.Server.WriteTimeout},
		{"server.idle_timeout", fc.Server.IdleTimeout, &c.Server.IdleTimeout},
		{"server.shutdown_timeout", fc.Server.ShutdownTimeout, &c.Server.ShutdownTimeout},
		{"sources.fetch_timeout", fc.Sources.FetchTimeout, &c.Sources.FetchTimeout},
		{"database.conn_max_lifetime", fc.Database.ConnMaxLifetime, &c.Database.ConnMaxLifetime},
		{"database.conn_max_idle_time", fc.Database.ConnMaxIdleTime, &c.Database.ConnMaxIdleTime},
		{"dashboard.revalidate", fc.Dashboard.Revalidate, &c.Dashboard.Revalidate},
		{"dashboard.warm_interval", fc.Dashboard.WarmInterval, &c.Dashboard.WarmInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.dst = v
	}
	if fc.Dashboard.Revalidate != "" {
		c.revalidateSet = true
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, os.Getenv("APP_ENV"))

	setString(&c.Server.Host, os.Getenv("SERVER_HOST"))
	setString(&c.Sources.Backend, os.Getenv("SOURCE_BACKEND"))
	setString(&c.Sources.DataDir, os.Getenv("DATA_DIR"))
	setString(&c.Sources.BaseURL, os.Getenv("SOURCE_BASE_URL"))
	setString(&c.Sources.EnergyFile, os.Getenv("ENERGY_FILE"))
	setString(&c.Sources.WeatherFile, os.Getenv("WEATHER_FILE"))
	setString(&c.Sources.AnomalyFile, os.Getenv("ANOMALY_FILE"))
	setString(&c.Sources.Timezone, os.Getenv("SOURCE_TIMEZONE"))
	setString(&c.Database.Host, os.Getenv("DB_HOST"))
	setString(&c.Database.User, os.Getenv("DB_USER"))
	setString(&c.Database.Password, os.Getenv("DB_PASSWORD"))
	setString(&c.Database.Database, os.Getenv("DB_NAME"))
	setString(&c.Database.SSLMode, os.Getenv("DB_SSLMODE"))
	setString(&c.Dashboard.APIBaseURL, os.Getenv("DASHBOARD_API_BASE_URL"))
	setString(&c.Logging.Level, os.Getenv("LOG_LEVEL"))

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SERVER_PORT", &c.Server.Port},
		{"SERVER_RATE_BURST", &c.Server.RateBurst},
		{"SOURCE_MAX_RETRIES", &c.Sources.MaxRetries},
		{"DB_PORT", &c.Database.Port},
		{"DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns},
		{"DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = n
	}

	if v := os.Getenv("SERVER_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SERVER_RATE_LIMIT: %w", err)
		}
		c.Server.RateLimit = f
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &c.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
		{"SOURCE_FETCH_TIMEOUT", &c.Sources.FetchTimeout},
		{"DB_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", &c.Database.ConnMaxIdleTime},
		{"DASHBOARD_REVALIDATE", &c.Dashboard.Revalidate},
		{"DASHBOARD_WARM_INTERVAL", &c.Dashboard.WarmInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if os.Getenv("DASHBOARD_REVALIDATE") != "" {
		c.revalidateSet = true
	}

	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
