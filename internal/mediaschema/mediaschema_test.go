package mediaschema

import (
	"context"
	"testing"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/connector/sqlite"
	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/recreate"
)

func TestNew(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Len() != 8 {
		t.Errorf("tables = %d, want 8", s.Len())
	}

	for _, name := range []string{"person", "game"} {
		tbl, ok := s.Table(name)
		if !ok {
			t.Fatalf("missing table %s", name)
		}
		if !tbl.Retireable() {
			t.Errorf("%s should be retireable", name)
		}
	}

	rating, _ := s.Table("episode_rating")
	if got := len(rating.ForeignKeys()); got != 2 {
		t.Errorf("episode_rating foreign keys = %d, want 2", got)
	}
	recording, _ := s.Table("tivo_recording")
	f, ok := recording.Field("episode_id")
	if !ok || !f.Nullable() {
		t.Errorf("tivo_recording.episode_id should be a nullable reference")
	}
}

func TestNewBuildsIndependentSchemas(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ta, _ := a.Table("person")
	tb, _ := b.Table("person")
	if ta == tb {
		t.Error("expected distinct table values per call")
	}
}

func TestNewTest(t *testing.T) {
	prod, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := NewTest()
	if err != nil {
		t.Fatalf("NewTest: %v", err)
	}
	if s.Len() != prod.Len()+2 {
		t.Errorf("tables = %d, want %d", s.Len(), prod.Len()+2)
	}
	if _, ok := prod.Table("mock_entity"); ok {
		t.Error("production schema must not contain mock tables")
	}
	if _, err := recreate.Order(s); err != nil {
		t.Errorf("order: %v", err)
	}
}

func TestRecreateAndValidateSQLite(t *testing.T) {
	ctx := context.Background()
	c := sqlite.New()
	if err := c.Connect(connector.ConnectionConfig{DSN: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	s, err := NewTest()
	if err != nil {
		t.Fatalf("NewTest: %v", err)
	}
	if err := recreate.New(c.DB(), c, nil).Recreate(ctx, s); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	mismatches, err := drift.NewValidator(c, c.TypeMap(), nil).Validate(ctx, s)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("expected no drift, got %v", mismatches)
	}
}
