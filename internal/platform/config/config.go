// Package config loads garage-api settings from defaults, an optional YAML
// file and GARAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. GARAGE_AUTH_TOKEN_SECRET.
const EnvPrefix = "GARAGE"

// DevTokenSecret signs tokens when auth.mode is "dev" and no secret is set.
const DevTokenSecret = "garage-dev-secret-change-me"

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	AuthModeToken = "token"
	AuthModeDev   = "dev"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Sweep   SweepConfig   `mapstructure:"sweep" yaml:"sweep"`
}

type ServerConfig struct {
	Host                string        `mapstructure:"host" yaml:"host"`
	Port                int           `mapstructure:"port" yaml:"port"`
	CORSOrigins         []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	SigninRatePerMinute int           `mapstructure:"signin_rate_per_minute" yaml:"signin_rate_per_minute"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	MaxConns    int32  `mapstructure:"max_conns" yaml:"max_conns"`
}

type AuthConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret"`
	// TokenLifetime is a Go duration or a bare millisecond count.
	TokenLifetime string   `mapstructure:"token_lifetime" yaml:"token_lifetime"`
	PublicRoutes  []string `mapstructure:"public_routes" yaml:"public_routes"`
	BcryptCost    int      `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

type SweepConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	At       string `mapstructure:"at" yaml:"at"`
	TimeZone string `mapstructure:"time_zone" yaml:"time_zone"`
}

// SetDefaults registers every key so that environment overrides apply to it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.signin_rate_per_minute", 20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.sqlite_path", "garage.db")
	v.SetDefault("storage.max_conns", 10)

	v.SetDefault("auth.mode", AuthModeToken)
	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_lifetime", "")
	v.SetDefault("auth.public_routes", []string{"POST /api/users", "POST /api/signin"})
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.at", "07:00")
	v.SetDefault("sweep.time_zone", "America/Sao_Paulo")
}

// BindEnv wires GARAGE_* variables: "auth.token_secret" is read from
// GARAGE_AUTH_TOKEN_SECRET.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))

	if cfg.Auth.Mode == AuthModeDev && cfg.Auth.TokenSecret == "" {
		cfg.Auth.TokenSecret = DevTokenSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory|sqlite|postgres, got %q", c.Storage.Backend))
	}
	switch c.Auth.Mode {
	case AuthModeToken, AuthModeDev:
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be token or dev, got %q", c.Auth.Mode))
	}
	if c.Auth.TokenSecret == "" {
		errs = append(errs, fmt.Errorf("auth.token_secret is required (set %s_AUTH_TOKEN_SECRET)", EnvPrefix))
	}
	if c.Sweep.Enabled && (c.Sweep.At == "" || c.Sweep.TimeZone == "") {
		errs = append(errs, errors.New("sweep.at and sweep.time_zone are required when the sweep is enabled"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.TokenSecret != "" {
		c.Auth.TokenSecret = "********"
	}
	if c.Storage.DatabaseURL != "" {
		c.Storage.DatabaseURL = redactURL(c.Storage.DatabaseURL)
	}
	return c
}

func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "********" + raw[at:]
}
