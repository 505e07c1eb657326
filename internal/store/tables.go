package store

import (
	"github.com/mediatally/mediatally/internal/schema"
)

const (
	checkRunTable     = "check_run"
	checkFindingTable = "check_finding"
)

// historySchema declares the store's own tables. They are created from the
// same DDL generator as any other schema and validated on open.
func historySchema() (*schema.Schema, error) {
	run := schema.NewTable(checkRunTable)
	run.String("run_id", 36, schema.NotNull)
	run.String("service", 64, schema.NotNull)
	run.String("schema_name", 64, schema.NotNull)
	run.String("dialect", 32, schema.NotNull)
	run.Timestamp("started_at", schema.NotNull)
	run.Timestamp("finished_at", schema.NotNull).WithDefault(schema.Now)
	run.Integer("mismatch_count", schema.Standard, schema.NotNull).WithDefault("0")
	run.Boolean("has_drift", schema.NotNull).WithDefault("false")
	run.Unique("run_id")
	runT, err := run.Build()
	if err != nil {
		return nil, err
	}

	finding := schema.NewTable(checkFindingTable)
	finding.ForeignKey(runT, schema.NotNull)
	finding.Integer("position", schema.Standard, schema.NotNull)
	finding.String("kind", 48, schema.NotNull)
	finding.String("table_name", 128, schema.NotNull)
	finding.String("column_name", 128, schema.NotNull)
	finding.Text("expected", schema.NotNull)
	finding.Text("actual", schema.NotNull)
	finding.Text("message", schema.NotNull)
	finding.Unique("check_run_id", "position")
	findingT, err := finding.Build()
	if err != nil {
		return nil, err
	}

	return schema.New("history", runT, findingT)
}
