package recreate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediatally/mediatally/internal/schema"
)

// Executor runs a single DDL statement. *sqlx.DB and *sql.DB satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Phase groups the statements of a recreation.
type Phase string

const (
	PhaseDrop       Phase = "drop"
	PhaseCreate     Phase = "create"
	PhaseForeignKey Phase = "foreign_key"
	PhaseUnique     Phase = "unique"
)

// Step is one statement of a recreation plan.
type Step struct {
	Phase Phase  `json:"phase"`
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// StepError wraps the database error of a failed statement.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v\n  statement: %s", e.Step.Phase, e.Step.Table, e.Err, e.Step.SQL)
}

func (e *StepError) Unwrap() error { return e.Err }

// Recreator drops and recreates a schema's tables on one connection. It
// never deletes rows and never touches tables the schema does not declare.
type Recreator struct {
	exec    Executor
	dialect schema.Dialect
	logger  *slog.Logger
}

// New returns a Recreator. A nil logger uses slog.Default().
func New(exec Executor, dialect schema.Dialect, logger *slog.Logger) *Recreator {
	if logger == nil {
		logger = slog.Default()
	}
	if dialect == nil {
		dialect = schema.Generic
	}
	return &Recreator{exec: exec, dialect: dialect, logger: logger}
}

// Plan returns the statements Recreate would run, in order: drops in
// reverse dependency order, creates in dependency order, then every
// foreign key and unique constraint.
func (r *Recreator) Plan(s *schema.Schema) ([]Step, error) {
	ordered, err := Order(s)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for i := len(ordered) - 1; i >= 0; i-- {
		t := ordered[i]
		steps = append(steps, Step{Phase: PhaseDrop, Table: t.Name(), SQL: t.DropStatementFor(r.dialect)})
	}
	creates, err := r.createSteps(ordered)
	if err != nil {
		return nil, err
	}
	return append(steps, creates...), nil
}

// CreatePlan returns the statements that materialize s in an empty
// database: Plan without the drops.
func (r *Recreator) CreatePlan(s *schema.Schema) ([]Step, error) {
	ordered, err := Order(s)
	if err != nil {
		return nil, err
	}
	return r.createSteps(ordered)
}

// Recreate runs Plan's statements. The first failure aborts the run and is
// returned as a *StepError; statements already executed are not undone.
func (r *Recreator) Recreate(ctx context.Context, s *schema.Schema) error {
	steps, err := r.Plan(s)
	if err != nil {
		return err
	}
	r.logger.Info("recreating schema", "schema", s.Name(), "dialect", r.dialect.DriverName(), "tables", s.Len(), "statements", len(steps))
	return r.run(ctx, steps)
}

// EnsureTables creates the schema's tables that are not in existing, along
// with their constraints, and returns the steps it ran. Existing tables
// are left as they are.
func (r *Recreator) EnsureTables(ctx context.Context, s *schema.Schema, existing []string) ([]Step, error) {
	ordered, err := Order(s)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[strings.ToLower(name)] = true
	}
	var missing []*schema.Table
	for _, t := range ordered {
		if !present[strings.ToLower(t.Name())] {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	steps, err := r.createSteps(missing)
	if err != nil {
		return nil, err
	}
	r.logger.Info("creating missing tables", "schema", s.Name(), "tables", len(missing))
	return steps, r.run(ctx, steps)
}

func (r *Recreator) createSteps(ordered []*schema.Table) ([]Step, error) {
	var creates, fks, uniques []Step
	for _, t := range ordered {
		stmt, err := t.CreateStatementFor(r.dialect)
		if err != nil {
			return nil, err
		}
		creates = append(creates, Step{Phase: PhaseCreate, Table: t.Name(), SQL: stmt})
		for _, fk := range t.ForeignKeyStatementsFor(r.dialect) {
			fks = append(fks, Step{Phase: PhaseForeignKey, Table: t.Name(), SQL: fk})
		}
		for _, uq := range t.UniqueStatementsFor(r.dialect) {
			uniques = append(uniques, Step{Phase: PhaseUnique, Table: t.Name(), SQL: uq})
		}
	}
	steps := append(creates, fks...)
	return append(steps, uniques...), nil
}

func (r *Recreator) run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		r.logger.Debug("executing ddl", "phase", step.Phase, "table", step.Table)
		if _, err := r.exec.ExecContext(ctx, step.SQL); err != nil {
			r.logger.Error("ddl failed", "phase", step.Phase, "table", step.Table, "error", err)
			return &StepError{Step: step, Err: err}
		}
	}
	return nil
}
