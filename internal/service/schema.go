// Package service runs the schema operations shared by the CLI, the HTTP
// API and the MCP server against configured database services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/recreate"
	"github.com/mediatally/mediatally/internal/schema"
	"github.com/mediatally/mediatally/internal/store"
)

var (
	ErrUnknownService     = errors.New("unknown service")
	ErrRecreateNotAllowed = errors.New("recreate not allowed")
)

// SchemaService binds one schema to the configured services.
type SchemaService struct {
	schema   *schema.Schema
	registry *connector.Registry
	services map[string]model.ServiceConfig
	history  *store.Store
	logger   *slog.Logger

	connectMu sync.Mutex
}

// NewSchemaService returns a SchemaService. history may be nil, in which
// case checks are not recorded.
func NewSchemaService(s *schema.Schema, registry *connector.Registry, services []model.ServiceConfig, history *store.Store, logger *slog.Logger) *SchemaService {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]model.ServiceConfig, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}
	return &SchemaService{
		schema:   s,
		registry: registry,
		services: byName,
		history:  history,
		logger:   logger,
	}
}

func (s *SchemaService) Schema() *schema.Schema { return s.schema }

func (s *SchemaService) History() *store.Store { return s.history }

// Services returns the configured service names, sorted.
func (s *SchemaService) Services() []string {
	names := make([]string, 0, len(s.services))
	for n := range s.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Service returns a configured service by name.
func (s *SchemaService) Service(name string) (model.ServiceConfig, error) {
	svc, ok := s.services[name]
	if !ok {
		return model.ServiceConfig{}, fmt.Errorf("%w %q", ErrUnknownService, name)
	}
	return svc, nil
}

// ColumnInfo describes one declared column.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    string `json:"default,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	References string `json:"references,omitempty"`
}

// TableInfo describes one declared table.
type TableInfo struct {
	Name       string       `json:"name"`
	Retireable bool         `json:"retireable"`
	Columns    []ColumnInfo `json:"columns"`
	Unique     [][]string   `json:"unique,omitempty"`
}

// ModelDescription is the declared schema in dependency order.
type ModelDescription struct {
	Name   string      `json:"name"`
	Tables []TableInfo `json:"tables"`
}

// Describe returns the declared schema with generic type spellings.
func (s *SchemaService) Describe() (ModelDescription, error) {
	ordered, err := recreate.Order(s.schema)
	if err != nil {
		return ModelDescription{}, err
	}
	desc := ModelDescription{Name: s.schema.Name(), Tables: make([]TableInfo, 0, len(ordered))}
	for _, t := range ordered {
		info := TableInfo{Name: t.Name(), Retireable: t.Retireable()}
		for _, f := range t.Fields() {
			col := ColumnInfo{
				Name:       f.Name(),
				Type:       schema.GenericTypes.Render(f.Type()),
				Nullable:   f.Nullable(),
				PrimaryKey: f.IsPrimaryKey(),
			}
			if d, ok := f.Default(); ok {
				col.Default = d.Raw
				if d.Now {
					col.Default = schema.Now
				}
			}
			if ref, ok := f.Type().(schema.Reference); ok {
				col.References = ref.Table + "." + schema.PrimaryKeyName
			}
			info.Columns = append(info.Columns, col)
		}
		for _, uc := range t.UniqueConstraints() {
			info.Unique = append(info.Unique, uc.Columns)
		}
		desc.Tables = append(desc.Tables, info)
	}
	return desc, nil
}

// DDL returns the statements that create the schema for a driver. An empty
// driver uses the generic dialect.
func (s *SchemaService) DDL(driver string) ([]recreate.Step, error) {
	var d schema.Dialect = schema.Generic
	if driver != "" && driver != schema.Generic.DriverName() {
		var err error
		if d, err = s.registry.Dialect(driver); err != nil {
			return nil, err
		}
	}
	return recreate.New(nil, d, s.logger).CreatePlan(s.schema)
}

// Plan returns the statements a recreation of the named service would run.
// It does not connect.
func (s *SchemaService) Plan(name string) ([]recreate.Step, error) {
	svc, err := s.Service(name)
	if err != nil {
		return nil, err
	}
	d, err := s.registry.Dialect(svc.Driver)
	if err != nil {
		return nil, err
	}
	return recreate.New(nil, d, s.logger).Plan(s.schema)
}

// Recreate drops and recreates the schema's tables on the named service.
// The service must set allow_recreate.
func (s *SchemaService) Recreate(ctx context.Context, name string) error {
	svc, err := s.Service(name)
	if err != nil {
		return err
	}
	if !svc.AllowRecreate {
		return fmt.Errorf("%w: service %q does not set allow_recreate", ErrRecreateNotAllowed, name)
	}
	conn, err := s.connect(svc)
	if err != nil {
		return err
	}
	return recreate.New(conn.DB(), conn, s.logger).Recreate(ctx, s.schema)
}

// Check validates the named service against the schema and records the
// result when a history store is configured. The returned run is nil
// without a store.
func (s *SchemaService) Check(ctx context.Context, name string) (drift.Report, *store.CheckRun, error) {
	svc, err := s.Service(name)
	if err != nil {
		return drift.Report{}, nil, err
	}
	conn, err := s.connect(svc)
	if err != nil {
		return drift.Report{}, nil, err
	}

	started := time.Now()
	mismatches, err := drift.NewValidator(conn, conn.TypeMap(), s.logger).Validate(ctx, s.schema)
	if err != nil {
		return drift.Report{}, nil, fmt.Errorf("check service %q: %w", name, err)
	}
	report := drift.NewReport(name, s.schema.Name(), conn.DriverName(), mismatches)
	if report.HasDrift {
		s.logger.Warn("schema drift detected", "service", name, "mismatches", len(mismatches))
	}

	if s.history == nil {
		return report, nil, nil
	}
	run, err := s.history.RecordCheck(ctx, report, started)
	if err != nil {
		return report, nil, fmt.Errorf("record check: %w", err)
	}
	return report, run, nil
}

// Catalog introspects every live table of the named service.
func (s *SchemaService) Catalog(ctx context.Context, name string) (*model.Schema, error) {
	svc, err := s.Service(name)
	if err != nil {
		return nil, err
	}
	conn, err := s.connect(svc)
	if err != nil {
		return nil, err
	}
	return connector.IntrospectSchema(ctx, conn, name)
}

// Ping checks every connected service.
func (s *SchemaService) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for _, name := range s.registry.ListServices() {
		conn, err := s.registry.Get(name)
		if err == nil {
			err = conn.Ping(ctx)
		}
		out[name] = err
	}
	return out
}

func (s *SchemaService) connect(svc model.ServiceConfig) (connector.Connector, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if conn, err := s.registry.Get(svc.Name); err == nil {
		return conn, nil
	}
	if err := s.registry.Connect(svc.Name, connector.FromService(svc)); err != nil {
		return nil, err
	}
	s.logger.Info("connected to service", "service", svc.Name, "driver", svc.Driver)
	return s.registry.Get(svc.Name)
}
