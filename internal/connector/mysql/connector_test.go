package mysql

import (
	"strings"
	"testing"

	"github.com/mediatally/mediatally/internal/schema"
)

func TestQuoteIdentifier(t *testing.T) {
	c := &MySQLConnector{}
	tests := []struct{ in, want string }{
		{"person", "`person`"},
		{"we`ird", "`we``ird`"},
	}
	for _, tt := range tests {
		if got := c.QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCreateStatement(t *testing.T) {
	b := schema.NewTable("game")
	b.String("title", 200, schema.NotNull)
	b.Decimal("price", schema.Nullable)
	b.Boolean("owned", schema.NotNull).WithDefault("true")
	b.Timestamp("added_at", schema.NotNull).WithDefault(schema.Now)
	tbl := b.MustBuild()

	got, err := tbl.CreateStatementFor(&MySQLConnector{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE `game` (",
		"`id` INT NOT NULL",
		"`title` VARCHAR(200) NOT NULL",
		"`price` DECIMAL(38,10),",
		"`owned` BOOLEAN NOT NULL DEFAULT TRUE",
		"`added_at` DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"PRIMARY KEY (`id`)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}

func TestTypesResolveCatalogSpellings(t *testing.T) {
	tests := []struct {
		catalog string
		want    schema.Type
	}{
		{"smallint", schema.Integer{Size: schema.Small}},
		{"int", schema.Integer{Size: schema.Standard}},
		{"int(11)", schema.Integer{Size: schema.Standard}},
		{"bigint(20)", schema.Integer{Size: schema.Big}},
		{"decimal(38,10)", schema.Decimal{}},
		{"datetime", schema.Timestamp{}},
		{"varchar(64)", schema.String{Length: 64}},
		{"text", schema.String{}},
		{"tinyint(1)", schema.Boolean{}},
	}
	for _, tt := range tests {
		got, ok := Types.Resolve(tt.catalog)
		if !ok {
			t.Errorf("Resolve(%q): not resolved", tt.catalog)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.catalog, got, tt.want)
		}
	}
	if _, ok := Types.Resolve("tinyint(4)"); ok {
		t.Error("tinyint(4) must not resolve to boolean")
	}
}
