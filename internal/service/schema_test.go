package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/connector/postgres"
	"github.com/mediatally/mediatally/internal/connector/sqlite"
	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/mediaschema"
	"github.com/mediatally/mediatally/internal/model"
	"github.com/mediatally/mediatally/internal/recreate"
	"github.com/mediatally/mediatally/internal/store"
)

func newTestService(t *testing.T, withHistory bool) *SchemaService {
	t.Helper()
	s, err := mediaschema.New()
	if err != nil {
		t.Fatalf("mediaschema: %v", err)
	}

	registry := connector.NewRegistry()
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	t.Cleanup(registry.CloseAll)

	dir := t.TempDir()
	services := []model.ServiceConfig{
		{Name: "scratch", Driver: "sqlite", DSN: filepath.Join(dir, "scratch.db"), AllowRecreate: true},
		{Name: "prod", Driver: "sqlite", DSN: filepath.Join(dir, "prod.db")},
		{Name: "warehouse", Driver: "postgres", DSN: "postgres://localhost/none"},
	}

	var history *store.Store
	if withHistory {
		history, err = store.Open(context.Background(), "", nil)
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		t.Cleanup(func() { history.Close() })
	}
	return NewSchemaService(s, registry, services, history, nil)
}

func TestServices(t *testing.T) {
	svc := newTestService(t, false)
	if got := strings.Join(svc.Services(), ","); got != "prod,scratch,warehouse" {
		t.Errorf("services = %s", got)
	}
	if _, err := svc.Service("nope"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("got %v, want ErrUnknownService", err)
	}
}

func TestDescribe(t *testing.T) {
	desc, err := newTestService(t, false).Describe()
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Name != mediaschema.Name || len(desc.Tables) != 8 {
		t.Fatalf("got %s with %d tables", desc.Name, len(desc.Tables))
	}
	if desc.Tables[0].Name != "person" || !desc.Tables[0].Retireable {
		t.Errorf("first table: %+v", desc.Tables[0])
	}

	var rating TableInfo
	for _, tbl := range desc.Tables {
		if tbl.Name == "episode_rating" {
			rating = tbl
		}
	}
	if len(rating.Columns) == 0 {
		t.Fatal("episode_rating not described")
	}
	if c := rating.Columns[1]; c.Name != "episode_id" || c.References != "episode.id" || c.Type != "INTEGER" {
		t.Errorf("episode_id column: %+v", c)
	}
	if got := rating.Columns[len(rating.Columns)-1]; got.Default != "now" {
		t.Errorf("rated_at default = %q", got.Default)
	}
}

func TestDDL(t *testing.T) {
	svc := newTestService(t, false)

	generic, err := svc.DDL("")
	if err != nil {
		t.Fatalf("DDL: %v", err)
	}
	if generic[0].Phase != recreate.PhaseCreate || !strings.HasPrefix(generic[0].SQL, "CREATE TABLE person") {
		t.Errorf("first step: %+v", generic[0])
	}

	pg, err := svc.DDL("postgres")
	if err != nil {
		t.Fatalf("DDL postgres: %v", err)
	}
	if !strings.HasPrefix(pg[0].SQL, `CREATE TABLE "public"."person"`) {
		t.Errorf("postgres first step: %s", pg[0].SQL)
	}

	if _, err := svc.DDL("oracle"); err == nil {
		t.Error("expected error for unregistered driver")
	}
}

func TestPlanDoesNotConnect(t *testing.T) {
	svc := newTestService(t, false)
	steps, err := svc.Plan("warehouse")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if steps[0].Phase != recreate.PhaseDrop {
		t.Errorf("first step: %+v", steps[0])
	}
	if len(svc.registry.ListServices()) != 0 {
		t.Error("Plan must not open connections")
	}
}

func TestRecreateRequiresAllowRecreate(t *testing.T) {
	svc := newTestService(t, false)
	err := svc.Recreate(context.Background(), "prod")
	if !errors.Is(err, ErrRecreateNotAllowed) {
		t.Errorf("got %v, want ErrRecreateNotAllowed", err)
	}
}

func TestRecreateThenCheck(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, true)

	report, run, err := svc.Check(ctx, "scratch")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.HasDrift || report.Counts[drift.MissingTable] != 8 {
		t.Errorf("empty database report: %+v", report.Counts)
	}
	if run == nil || run.MismatchCount != 8 {
		t.Errorf("recorded run: %+v", run)
	}

	if err := svc.Recreate(ctx, "scratch"); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	report, run, err = svc.Check(ctx, "scratch")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.HasDrift {
		t.Errorf("expected no drift after recreate: %v", report.Mismatches)
	}
	if report.Dialect != "sqlite" {
		t.Errorf("dialect = %s", report.Dialect)
	}

	runs, err := svc.History().ListChecks(ctx, "scratch", 0)
	if err != nil {
		t.Fatalf("ListChecks: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != run.RunID {
		t.Errorf("history: %+v", runs)
	}
}

func TestCheckWithoutHistory(t *testing.T) {
	_, run, err := newTestService(t, false).Check(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if run != nil {
		t.Errorf("expected no recorded run, got %+v", run)
	}
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, false)
	if err := svc.Recreate(ctx, "scratch"); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	cat, err := svc.Catalog(ctx, "scratch")
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(cat.Tables) != 8 {
		t.Errorf("got %d live tables, want 8", len(cat.Tables))
	}
}
