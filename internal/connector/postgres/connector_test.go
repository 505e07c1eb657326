package postgres

import (
	"strings"
	"testing"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"

	"github.com/mediatally/mediatally/internal/schema"
)

func newTestConnector() *PostgresConnector {
	return &PostgresConnector{schemaName: "public"}
}

func ratingTables(t *testing.T) (*schema.Table, *schema.Table) {
	t.Helper()
	eb := schema.NewTable("episode")
	eb.String("title", 255, schema.NotNull)
	eb.Integer("season", schema.Small, schema.NotNull)
	eb.Timestamp("aired_at", schema.Nullable)
	eb.Boolean("special", schema.NotNull).WithDefault("false")
	eb.Timestamp("created_at", schema.NotNull).WithDefault(schema.Now)
	episode := eb.MustBuild()

	rb := schema.NewTable("episode_rating")
	rb.ForeignKey(episode, schema.NotNull)
	rb.Decimal("rating", schema.NotNull)
	rb.Text("comment", schema.Nullable)
	rb.Unique("episode_id", "rating")
	return episode, rb.MustBuild()
}

func TestQuoting(t *testing.T) {
	c := newTestConnector()
	if got := c.QuoteIdentifier(`od"d`); got != `"od""d"` {
		t.Errorf("QuoteIdentifier = %s", got)
	}
	if got := c.QualifyTable("person"); got != `"public"."person"` {
		t.Errorf("QualifyTable = %s", got)
	}
}

func TestCreateStatement(t *testing.T) {
	episode, _ := ratingTables(t)
	got, err := episode.CreateStatementFor(newTestConnector())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `CREATE TABLE "public"."episode" (` + "\n" +
		`  "id" INTEGER NOT NULL,` + "\n" +
		`  "title" VARCHAR(255) NOT NULL,` + "\n" +
		`  "season" SMALLINT NOT NULL,` + "\n" +
		`  "aired_at" TIMESTAMP,` + "\n" +
		`  "special" BOOLEAN NOT NULL DEFAULT FALSE,` + "\n" +
		`  "created_at" TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,` + "\n" +
		`  PRIMARY KEY ("id")` + "\n" +
		`)`
	if got != want {
		t.Errorf("CreateStatementFor mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

// TestGeneratedDDLParses runs every generated statement through a
// PostgreSQL grammar.
func TestGeneratedDDLParses(t *testing.T) {
	c := newTestConnector()
	episode, rating := ratingTables(t)

	var stmts []string
	for _, tbl := range []*schema.Table{episode, rating} {
		create, err := tbl.CreateStatementFor(c)
		if err != nil {
			t.Fatalf("create %s: %v", tbl.Name(), err)
		}
		stmts = append(stmts, tbl.DropStatementFor(c), create)
		stmts = append(stmts, tbl.ForeignKeyStatementsFor(c)...)
		stmts = append(stmts, tbl.UniqueStatementsFor(c)...)
	}
	if len(stmts) != 6 {
		t.Fatalf("expected 6 statements, got %d: %v", len(stmts), stmts)
	}

	for _, sql := range stmts {
		parsed, err := parser.Parse(sql)
		if err != nil {
			t.Errorf("statement does not parse: %v\n%s", err, sql)
			continue
		}
		if len(parsed) != 1 {
			t.Errorf("expected one statement, got %d for %s", len(parsed), sql)
		}
	}

	create, _ := rating.CreateStatementFor(c)
	parsed, err := parser.Parse(create)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ct, ok := parsed[0].AST.(*tree.CreateTable)
	if !ok {
		t.Fatalf("expected *tree.CreateTable, got %T", parsed[0].AST)
	}
	// Four columns plus the primary key constraint.
	if len(ct.Defs) != 5 {
		t.Errorf("expected 5 table defs, got %d", len(ct.Defs))
	}
}

func TestForeignKeyStatement(t *testing.T) {
	_, rating := ratingTables(t)
	stmts := rating.ForeignKeyStatementsFor(newTestConnector())
	want := `ALTER TABLE "public"."episode_rating" ADD CONSTRAINT "fk_episode_rating_episode_id" ` +
		`FOREIGN KEY ("episode_id") REFERENCES "public"."episode" ("id")`
	if len(stmts) != 1 || stmts[0] != want {
		t.Errorf("got %v, want [%s]", stmts, want)
	}
}

func TestTypesRoundTrip(t *testing.T) {
	// Every generated spelling must resolve to its own semantic type, and so
	// must the udt name information_schema reports for it.
	tests := []struct {
		typ     schema.Type
		catalog string
	}{
		{schema.Integer{Size: schema.Small}, "int2"},
		{schema.Integer{Size: schema.Standard}, "int4"},
		{schema.Integer{Size: schema.Big}, "int8"},
		{schema.Decimal{}, "numeric"},
		{schema.Timestamp{}, "timestamp"},
		{schema.String{Length: 64}, "varchar(64)"},
		{schema.String{}, "text"},
		{schema.Boolean{}, "bool"},
	}
	for _, tt := range tests {
		rendered := Types.Render(tt.typ)
		for _, spelling := range []string{rendered, tt.catalog} {
			got, ok := Types.Resolve(spelling)
			if !ok {
				t.Errorf("Resolve(%q): not resolved", spelling)
				continue
			}
			if !schema.StorageEquivalent(got, tt.typ) {
				t.Errorf("Resolve(%q) = %v, want %v", spelling, got, tt.typ)
			}
		}
	}
	if strings.ToLower(Types.Render(schema.String{Length: 10})) != "varchar(10)" {
		t.Errorf("unexpected varchar rendering %s", Types.Render(schema.String{Length: 10}))
	}
}
