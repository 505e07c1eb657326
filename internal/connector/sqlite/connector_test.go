package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/schema"
)

func connect(t *testing.T) *SQLiteConnector {
	t.Helper()
	c := New().(*SQLiteConnector)
	if err := c.Connect(connector.ConnectionConfig{DSN: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func exec(t *testing.T, c *SQLiteConnector, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := c.DB().Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

func TestQuoting(t *testing.T) {
	c := &SQLiteConnector{}
	if got := c.QuoteIdentifier(`a"b`); got != `"a""b"` {
		t.Errorf("QuoteIdentifier = %s", got)
	}
	if got := c.QualifyTable("game"); got != `"game"` {
		t.Errorf("QualifyTable = %s", got)
	}
}

func TestInlineConstraints(t *testing.T) {
	gb := schema.NewTable("game")
	gb.String("title", 100, schema.NotNull)
	game := gb.MustBuild()

	pb := schema.NewTable("game_platform")
	pb.ForeignKey(game, schema.NotNull)
	pb.String("platform", 32, schema.NotNull)
	pb.Unique("game_id", "platform")
	platform := pb.MustBuild()

	c := &SQLiteConnector{}
	create, err := platform.CreateStatementFor(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(create, `FOREIGN KEY ("game_id") REFERENCES "game" ("id")`) {
		t.Errorf("expected inline foreign key:\n%s", create)
	}
	if fks := platform.ForeignKeyStatementsFor(c); len(fks) != 0 {
		t.Errorf("expected no ALTER statements, got %v", fks)
	}
	uq := platform.UniqueStatementsFor(c)
	if len(uq) != 1 || !strings.HasPrefix(uq[0], "CREATE UNIQUE INDEX") {
		t.Errorf("unique statements: %v", uq)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	c := connect(t)
	var on int
	if err := c.DB().Get(&on, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestIntrospectTable(t *testing.T) {
	c := connect(t)
	exec(t, c,
		`CREATE TABLE series (id INTEGER NOT NULL, title VARCHAR(200) NOT NULL, PRIMARY KEY (id))`,
		`CREATE TABLE episode (
			id INTEGER NOT NULL,
			series_id INTEGER NOT NULL,
			season SMALLINT NOT NULL,
			note TEXT,
			PRIMARY KEY (id),
			FOREIGN KEY (series_id) REFERENCES series
		)`,
		`CREATE UNIQUE INDEX uq_episode_series_id_season ON episode (series_id, season)`,
		`CREATE UNIQUE INDEX uq_episode_partial ON episode (note) WHERE note IS NOT NULL`,
	)

	ctx := context.Background()
	names, err := c.GetTableNames(ctx)
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if strings.Join(names, ",") != "episode,series" {
		t.Errorf("tables: %v", names)
	}

	ts, err := c.IntrospectTable(ctx, "episode")
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	if len(ts.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(ts.Columns))
	}
	if col, _ := ts.Column("season"); col.Type != "SMALLINT" || col.Nullable {
		t.Errorf("season: %+v", col)
	}
	if col, _ := ts.Column("note"); !col.Nullable {
		t.Errorf("note should be nullable")
	}
	if len(ts.PrimaryKey) != 1 || ts.PrimaryKey[0] != "id" {
		t.Errorf("primary key: %v", ts.PrimaryKey)
	}

	if len(ts.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(ts.ForeignKeys))
	}
	fk := ts.ForeignKeys[0]
	if fk.ColumnName != "series_id" || fk.ReferencedTable != "series" || fk.ReferencedColumn != "id" {
		t.Errorf("foreign key: %+v", fk)
	}

	if len(ts.UniqueConstraints) != 1 {
		t.Fatalf("expected the partial index to be skipped, got %v", ts.UniqueConstraints)
	}
	if got := strings.Join(ts.UniqueConstraints[0].Columns, ","); got != "series_id,season" {
		t.Errorf("unique columns: %s", got)
	}

	if _, err := c.IntrospectTable(ctx, "missing"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestTypeRoundTrip(t *testing.T) {
	c := &SQLiteConnector{}
	types := c.TypeMap()
	for _, typ := range []schema.Type{
		schema.Integer{Size: schema.Small},
		schema.Integer{},
		schema.Integer{Size: schema.Big},
		schema.Decimal{},
		schema.Timestamp{},
		schema.String{Length: 40},
		schema.String{},
		schema.Boolean{},
	} {
		got, ok := types.Resolve(types.Render(typ))
		if !ok {
			t.Errorf("%s did not resolve", types.Render(typ))
			continue
		}
		if !schema.StorageEquivalent(got, typ) {
			t.Errorf("%s resolved to %s", typ, got)
		}
	}
}
