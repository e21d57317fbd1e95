package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const devSecret = "development-insecure-secret-change-me"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Invites  InvitesConfig  `yaml:"invites"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Dev relaxes secret validation for local runs.
	Dev bool `yaml:"dev"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite | postgres
	DSN          string `yaml:"dsn"`
	LogLevel     string `yaml:"log_level"` // silent | error | warn | info
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTAudience string        `yaml:"jwt_audience"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	CookieName  string        `yaml:"cookie_name"`
	SignInPath  string        `yaml:"sign_in_path"`
	// OAuthBridgeSecret guards the provider sign-in endpoint. Empty disables it.
	OAuthBridgeSecret string `yaml:"oauth_bridge_secret"`
}

type UploadsConfig struct {
	Dir       string `yaml:"dir"`
	URLPrefix string `yaml:"url_prefix"`
	MaxBytes  int64  `yaml:"max_bytes"`
}

type InvitesConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8008",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			Dev:             true,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "project-management.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
			LogLevel:     "warn",
			MaxOpenConns: 1,
		},
		Auth: AuthConfig{
			JWTSecret:   devSecret,
			JWTIssuer:   "project-management-api",
			JWTAudience: "project-management-clients",
			TokenTTL:    24 * time.Hour,
			CookieName:  "pm_session",
			SignInPath:  "/signin",
		},
		Uploads: UploadsConfig{
			Dir:       "public/uploads",
			URLPrefix: "/uploads",
			MaxBytes:  10 << 20,
		},
		Invites: InvitesConfig{TTL: 7 * 24 * time.Hour},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (if it exists) over the defaults and then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("PM_ADDR", c.Server.Addr)
	if v := os.Getenv("PM_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("PM_DEV"); v != "" {
		c.Server.Dev, _ = strconv.ParseBool(v)
	}
	c.Database.Driver = getEnv("PM_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("PM_DB_DSN", c.Database.DSN)
	c.Database.LogLevel = getEnv("PM_DB_LOG_LEVEL", c.Database.LogLevel)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTIssuer = getEnv("JWT_ISSUER", c.Auth.JWTIssuer)
	c.Auth.JWTAudience = getEnv("JWT_AUDIENCE", c.Auth.JWTAudience)
	c.Auth.OAuthBridgeSecret = getEnv("PM_OAUTH_BRIDGE_SECRET", c.Auth.OAuthBridgeSecret)
	c.Uploads.Dir = getEnv("PM_UPLOAD_DIR", c.Uploads.Dir)
	c.Log.Level = getEnv("PM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("PM_LOG_FORMAT", c.Log.Format)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres (got %q)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if !c.Server.Dev && c.Auth.JWTSecret == devSecret {
		return errors.New("auth.jwt_secret must be changed outside dev mode")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive (got %s)", c.Auth.TokenTTL)
	}
	if c.Invites.TTL <= 0 {
		return fmt.Errorf("invites.ttl must be positive (got %s)", c.Invites.TTL)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive (got %d)", c.Uploads.MaxBytes)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console (got %q)", c.Log.Format)
	}
	return nil
}
