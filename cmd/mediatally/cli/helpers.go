package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/mediatally/mediatally/internal/config"
	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/connector/mssql"
	"github.com/mediatally/mediatally/internal/connector/mysql"
	"github.com/mediatally/mediatally/internal/connector/postgres"
	"github.com/mediatally/mediatally/internal/connector/sqlite"
	"github.com/mediatally/mediatally/internal/mediaschema"
	"github.com/mediatally/mediatally/internal/service"
	"github.com/mediatally/mediatally/internal/store"
)

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("mssql", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	return registry
}

// loadConfig reads the config file viper located, or returns the defaults
// when there is none. MEDIATALLY_HISTORY_DATA_DIR and --data-dir override
// the history directory.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		cfg = loaded
	}
	if dir := viper.GetString("history.data_dir"); dir != "" {
		cfg.History.DataDir = dir
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// app is the wiring every command that touches a database needs.
type app struct {
	cfg      *config.YAMLConfig
	logger   *slog.Logger
	registry *connector.Registry
	history  *store.Store
	svc      *service.SchemaService
}

// openApp loads the config, builds the schema and optionally opens the
// history store.
func openApp(ctx context.Context, withHistory bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging)

	services, err := cfg.ServiceConfigs()
	if err != nil {
		return nil, err
	}
	s, err := mediaschema.New()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, registry: newRegistry()}
	if withHistory {
		if a.history, err = store.Open(ctx, cfg.History.DataDir, logger); err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		logger.Debug("history store opened", "dir", cfg.History.DataDir)
	}
	a.svc = service.NewSchemaService(s, a.registry, services, a.history, logger)
	return a, nil
}

func (a *app) Close() {
	a.registry.CloseAll()
	if a.history != nil {
		a.history.Close()
	}
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
