package connector

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/schema"
)

// mockConnector implements Connector without a database.
type mockConnector struct {
	connected    bool
	disconnected bool
	cfg          ConnectionConfig
}

func (m *mockConnector) Connect(cfg ConnectionConfig) error {
	if cfg.DSN == "fail" {
		return fmt.Errorf("mock connect failure")
	}
	m.connected = true
	m.cfg = cfg
	return nil
}

func (m *mockConnector) Disconnect() error {
	m.disconnected = true
	m.connected = false
	return nil
}

func (m *mockConnector) Ping(_ context.Context) error { return nil }
func (m *mockConnector) DB() *sqlx.DB                 { return nil }
func (m *mockConnector) GetTableNames(_ context.Context) ([]string, error) {
	return []string{"person"}, nil
}
func (m *mockConnector) IntrospectTable(_ context.Context, name string) (*model.TableSchema, error) {
	return &model.TableSchema{Name: name}, nil
}
func (m *mockConnector) DriverName() string                 { return "mock" }
func (m *mockConnector) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (m *mockConnector) QualifyTable(name string) string    { return `"` + name + `"` }
func (m *mockConnector) TypeMap() schema.TypeMap            { return schema.GenericTypes }
func (m *mockConnector) BooleanLiteral(v bool) string       { return fmt.Sprint(v) }
func (m *mockConnector) InlineConstraints() bool            { return false }

func newMockRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDriver("mock", func() Connector { return &mockConnector{} })
	return r
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if len(r.ListServices()) != 0 {
		t.Error("new registry should have no services")
	}
	if len(r.Drivers()) != 0 {
		t.Error("new registry should have no drivers")
	}
}

func TestConnectAndGet(t *testing.T) {
	r := newMockRegistry()
	if err := r.Connect("media", ConnectionConfig{Driver: "mock", DSN: "test-dsn"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn, err := r.Get("media")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc := conn.(*mockConnector)
	if !mc.connected {
		t.Error("connector should be connected")
	}
	if mc.cfg.DSN != "test-dsn" {
		t.Errorf("expected DSN test-dsn, got %s", mc.cfg.DSN)
	}
}

func TestConnectErrors(t *testing.T) {
	r := newMockRegistry()
	if err := r.Connect("svc", ConnectionConfig{Driver: "unknown"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if err := r.Connect("svc", ConnectionConfig{Driver: "mock", DSN: "fail"}); err == nil {
		t.Error("expected error for connection failure")
	}
	if _, err := r.Get("svc"); err == nil {
		t.Error("failed connect must not register the service")
	}
}

func TestConnectReplacesExisting(t *testing.T) {
	r := NewRegistry()
	var first *mockConnector
	r.RegisterDriver("mock", func() Connector {
		mc := &mockConnector{}
		if first == nil {
			first = mc
		}
		return mc
	})

	r.Connect("svc", ConnectionConfig{Driver: "mock", DSN: "dsn1"})
	r.Connect("svc", ConnectionConfig{Driver: "mock", DSN: "dsn2"})

	if !first.disconnected {
		t.Error("first connector should have been disconnected on replacement")
	}
	conn, _ := r.Get("svc")
	if got := conn.(*mockConnector).cfg.DSN; got != "dsn2" {
		t.Errorf("expected DSN dsn2 after replacement, got %s", got)
	}
}

func TestDisconnectAndCloseAll(t *testing.T) {
	r := newMockRegistry()
	r.Connect("b", ConnectionConfig{Driver: "mock"})
	r.Connect("a", ConnectionConfig{Driver: "mock"})

	if got := r.ListServices(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected sorted [a b], got %v", got)
	}
	if err := r.Disconnect("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Disconnect("a"); err == nil {
		t.Error("expected error disconnecting twice")
	}
	r.CloseAll()
	if len(r.ListServices()) != 0 {
		t.Error("expected no services after CloseAll")
	}
}

func TestDialect(t *testing.T) {
	r := newMockRegistry()
	d, err := r.Dialect("mock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DriverName() != "mock" {
		t.Errorf("got dialect %s", d.DriverName())
	}
	if _, err := r.Dialect("oracle"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestIntrospectSchema(t *testing.T) {
	s, err := IntrospectSchema(context.Background(), &mockConnector{}, "media")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Tables) != 1 || s.Tables[0].Name != "person" {
		t.Errorf("unexpected schema %+v", s)
	}
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		driver, in, want string
	}{
		{"postgres", "postgres://user:p@ss#1@localhost:5432/media", "postgres://user:p@ss%231@localhost:5432/media"},
		{"postgres", "host=localhost dbname=media", "host=localhost dbname=media"},
		{"mysql", "root:pw@localhost:3306/media", "root:pw@tcp(localhost:3306)/media"},
		{"mysql", "root:pw@(localhost:3306)/media", "root:pw@tcp(localhost:3306)/media"},
		{"mysql", "root:pw@tcp(localhost:3306)/media", "root:pw@tcp(localhost:3306)/media"},
		{"sqlite", ":memory:", ":memory:"},
	}
	for _, tt := range tests {
		if got := SanitizeDSN(tt.driver, tt.in); got != tt.want {
			t.Errorf("SanitizeDSN(%q, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
}
