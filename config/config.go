package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // clinic time zone must resolve on minimal images

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	SUS       SUSConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
	// Timezone decides which calendar day is "today" for prescription status.
	Timezone string
}

// Location resolves Timezone; validate has already checked it loads.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// StaticDir, when set, is served at / with an index.html fallback.
	StaticDir string
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Global Rate limit per IP
	RequestsPerSecond float64
	BurstSize         int
	// Auth endpoints have stricter limits
	AuthRequestsPerMinute int
}

// SUSConfig points at the e-SUS database and the records endpoint that
// synced patients are pushed to.
type SUSConfig struct {
	DatabaseURL        string
	Table              string
	TargetURL          string
	APIKey             string
	RequestTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

func (s SUSConfig) Enabled() bool {
	return s.DatabaseURL != ""
}

var defaults = map[string]any{
	"APP_NAME":                "clinicrx",
	"APP_ENV":                 "development",
	"APP_VERSION":             "0.0.0",
	"APP_TIMEZONE":            "America/Sao_Paulo",
	"SERVER_HOST":             "0.0.0.0",
	"SERVER_PORT":             8080,
	"SERVER_READ_TIMEOUT":     15 * time.Second,
	"SERVER_WRITE_TIMEOUT":    15 * time.Second,
	"SERVER_IDLE_TIMEOUT":     60 * time.Second,
	"SERVER_SHUTDOWN_TIMEOUT": 30 * time.Second,
	"SERVER_STATIC_DIR":       "",
	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_NAME":                 "clinicrx",
	"DB_USER":                 "clinicrx",
	"DB_PASSWORD":             "",
	"DB_SSLMODE":              "require",
	"DB_MAX_OPEN_CONNS":       25,
	"DB_MAX_IDLE_CONNS":       10,
	"DB_CONN_MAX_LIFETIME":    30 * time.Minute,
	"DB_CONN_MAX_IDLE_TIME":   5 * time.Minute,
	"DB_SLOW_QUERY_THRESHOLD": 200 * time.Millisecond,
	"JWT_SECRET":              "",
	"JWT_ACCESS_TTL":          15 * time.Minute,
	"JWT_REFRESH_TTL":         7 * 24 * time.Hour,
	"JWT_ISSUER":              "clinicrx",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"LOG_OUTPUT":              "stdout",
	"TRACING_ENABLED":         false,
	"TRACING_SERVICE_NAME":    "clinicrx",
	"OTLP_ENDPOINT":           "localhost:4318",
	"TRACING_SAMPLE_RATE":     0.1,
	"CORS_ALLOWED_ORIGINS":    "http://localhost:3000",
	"CORS_ALLOWED_METHODS":    "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	"CORS_ALLOWED_HEADERS":    "Authorization,Content-Type,X-Request-ID",
	"CORS_MAX_AGE":            12 * time.Hour,
	"RATE_LIMIT_RPS":          100.0,
	"RATE_LIMIT_BURST":        200,
	"RATE_LIMIT_AUTH_RPM":     10,
	"SUS_DATABASE_URL":        "",
	"SUS_TABLE":               "pacientes",
	"SUS_TARGET_URL":          "",
	"SUS_API_KEY":             "",
	"SUS_REQUEST_TIMEOUT":     10 * time.Second,

	"SUS_BREAKER_MAX_FAILURES": 5,
	"SUS_BREAKER_OPEN_TIMEOUT": 30 * time.Second,
}

// Load reads configuration from the environment, falling back to an
// optional .env file and then to defaults.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Try reading the file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("APP_VERSION"),
			Timezone:    v.GetString("APP_TIMEZONE"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			StaticDir:       v.GetString("SERVER_STATIC_DIR"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetInt("DB_PORT"),
			Name:               v.GetString("DB_NAME"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:    v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime:    v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			SlowQueryThreshold: v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			AccessTokenTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTokenTTL: v.GetDuration("JWT_REFRESH_TTL"),
			Issuer:          v.GetString("JWT_ISSUER"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			OutputPath: v.GetString("LOG_OUTPUT"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
			Endpoint:    v.GetString("OTLP_ENDPOINT"),
			SampleRate:  v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			MaxAge:         v.GetDuration("CORS_MAX_AGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     v.GetFloat64("RATE_LIMIT_RPS"),
			BurstSize:             v.GetInt("RATE_LIMIT_BURST"),
			AuthRequestsPerMinute: v.GetInt("RATE_LIMIT_AUTH_RPM"),
		},
		SUS: SUSConfig{
			DatabaseURL:        v.GetString("SUS_DATABASE_URL"),
			Table:              v.GetString("SUS_TABLE"),
			TargetURL:          v.GetString("SUS_TARGET_URL"),
			APIKey:             v.GetString("SUS_API_KEY"),
			RequestTimeout:     v.GetDuration("SUS_REQUEST_TIMEOUT"),
			BreakerMaxFailures: v.GetUint32("SUS_BREAKER_MAX_FAILURES"),
			BreakerOpenTimeout: v.GetDuration("SUS_BREAKER_OPEN_TIMEOUT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a known time zone", cfg.App.Timezone))
	}

	if cfg.SUS.Table == "" {
		errs = append(errs, "SUS_TABLE must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}
