package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediatally.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLConfig(t *testing.T) {
	t.Setenv("MEDIATALLY_TEST_DSN", "postgres://u:p@db/media")
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit:
    requests: 10
    window: 30s
services:
  - name: prod
    driver: postgres
    dsn: ${MEDIATALLY_TEST_DSN}
    schema: public
    pool:
      max_open_conns: 8
      conn_max_lifetime: 10m
  - name: scratch
    driver: sqlite
    dsn: ":memory:"
    allow_recreate: true
logging:
  level: debug
`)

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want the default", cfg.Server.Host)
	}
	if cfg.RateLimitWindow() != 30*time.Second {
		t.Errorf("rate limit window = %v", cfg.RateLimitWindow())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	prod, err := cfg.Service("prod")
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	if prod.DSN != "postgres://u:p@db/media" {
		t.Errorf("dsn = %q, want the expanded variable", prod.DSN)
	}
	if prod.AllowRecreate {
		t.Error("prod must not allow recreate by default")
	}
	if prod.Pool.MaxOpenConns != 8 || prod.Pool.ConnMaxLifetime != 10*time.Minute {
		t.Errorf("pool = %+v", prod.Pool)
	}
	if prod.Pool.MaxIdleConns != 2 {
		t.Errorf("max idle conns = %d, want the default", prod.Pool.MaxIdleConns)
	}

	scratch, err := cfg.Service("scratch")
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	if !scratch.AllowRecreate {
		t.Error("scratch should allow recreate")
	}

	if _, err := cfg.Service("missing"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("got %v, want ErrUnknownService", err)
	}
}

func TestLoadYAMLConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "services: [\n"},
		{"missing name", "services:\n  - driver: sqlite\n"},
		{"missing driver", "services:\n  - name: a\n"},
		{"duplicate name", "services:\n  - {name: a, driver: sqlite}\n  - {name: a, driver: mysql}\n"},
		{"bad pool duration", "services:\n  - name: a\n    driver: sqlite\n    pool: {conn_max_lifetime: soon}\n"},
		{"bad window", "server:\n  rate_limit: {window: often}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadYAMLConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	if _, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediatally.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].Driver != "sqlite" {
		t.Errorf("services = %+v", cfg.Services)
	}
	if cfg.ShutdownTimeout() != 30*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout())
	}
}
