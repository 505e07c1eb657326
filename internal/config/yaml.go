package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediatally/mediatally/internal/model"
)

// ErrUnknownService is returned when a service name is not configured.
var ErrUnknownService = errors.New("unknown service")

// YAMLConfig represents the top-level mediatally configuration file.
type YAMLConfig struct {
	Server   ServerConfig  `yaml:"server"`
	Services []ServiceYAML `yaml:"services"`
	History  HistoryConfig `yaml:"history"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// RateLimitConfig caps requests per client IP. Zero disables the limit.
type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// ServiceYAML defines a database service in the YAML configuration file.
type ServiceYAML struct {
	Name          string          `yaml:"name"`
	Driver        string          `yaml:"driver"`
	DSN           string          `yaml:"dsn"`
	Schema        string          `yaml:"schema"`
	AllowRecreate bool            `yaml:"allow_recreate"`
	Pool          *PoolYAMLConfig `yaml:"pool,omitempty"`
}

// PoolYAMLConfig controls the connection pool for a service in YAML config.
type PoolYAMLConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

// HistoryConfig locates the check history database.
type HistoryConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
// Unset sections keep the values of DefaultYAMLConfig.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
			RateLimit: RateLimitConfig{
				Requests: 60,
				Window:   "1m",
			},
		},
		History: HistoryConfig{
			DataDir: defaultDataDir(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mediatally"
	}
	return home + string(os.PathSeparator) + ".mediatally"
}

// Validate checks service names and durations.
func (c *YAMLConfig) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Services))
	for i, s := range c.Services {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("services[%d]: name is required", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("services[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if s.Driver == "" {
			errs = append(errs, fmt.Errorf("service %q: driver is required", s.Name))
		}
		if _, err := s.ToModel(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range []struct{ key, value string }{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"server.rate_limit.window", c.Server.RateLimit.Window},
	} {
		if _, err := parseDuration(d.value, 0); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
		}
	}
	return errors.Join(errs...)
}

// Service returns the named service as a model.ServiceConfig.
func (c *YAMLConfig) Service(name string) (model.ServiceConfig, error) {
	for _, s := range c.Services {
		if s.Name == name {
			return s.ToModel()
		}
	}
	return model.ServiceConfig{}, fmt.Errorf("%w %q", ErrUnknownService, name)
}

// ServiceConfigs returns every configured service in file order.
func (c *YAMLConfig) ServiceConfigs() ([]model.ServiceConfig, error) {
	out := make([]model.ServiceConfig, 0, len(c.Services))
	for _, s := range c.Services {
		svc, err := s.ToModel()
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}

// ShutdownTimeout returns the parsed server shutdown timeout.
func (c *YAMLConfig) ShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.Server.ShutdownTimeout, 30*time.Second)
	return d
}

// RateLimitWindow returns the parsed rate limit window.
func (c *YAMLConfig) RateLimitWindow() time.Duration {
	d, _ := parseDuration(c.Server.RateLimit.Window, time.Minute)
	return d
}

// ToModel converts the YAML service to a model.ServiceConfig. Missing pool
// settings take model.DefaultPoolConfig values.
func (s ServiceYAML) ToModel() (model.ServiceConfig, error) {
	svc := model.ServiceConfig{
		Name:          s.Name,
		Driver:        s.Driver,
		DSN:           s.DSN,
		Schema:        s.Schema,
		AllowRecreate: s.AllowRecreate,
		Pool:          model.DefaultPoolConfig(),
	}
	if s.Pool == nil {
		return svc, nil
	}

	if s.Pool.MaxOpenConns > 0 {
		svc.Pool.MaxOpenConns = s.Pool.MaxOpenConns
	}
	if s.Pool.MaxIdleConns > 0 {
		svc.Pool.MaxIdleConns = s.Pool.MaxIdleConns
	}
	var err error
	if svc.Pool.ConnMaxLifetime, err = parseDuration(s.Pool.ConnMaxLifetime, svc.Pool.ConnMaxLifetime); err != nil {
		return svc, fmt.Errorf("service %q: conn_max_lifetime: %w", s.Name, err)
	}
	if svc.Pool.ConnMaxIdleTime, err = parseDuration(s.Pool.ConnMaxIdleTime, svc.Pool.ConnMaxIdleTime); err != nil {
		return svc, fmt.Errorf("service %q: conn_max_idle_time: %w", s.Name, err)
	}
	return svc, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback, err
	}
	return d, nil
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	cfg.Services = []ServiceYAML{{
		Name:   "local",
		Driver: "sqlite",
		DSN:    "mediatally.db",
	}}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
