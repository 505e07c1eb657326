package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediatally/mediatally/internal/connector"
	"github.com/mediatally/mediatally/internal/connector/sqlite"
	"github.com/mediatally/mediatally/internal/drift"
	"github.com/mediatally/mediatally/internal/recreate"
)

// builder renders statements with SQLite's ? placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store records drift check runs in a SQLite database.
type Store struct {
	conn   connector.Connector
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens the history database in dataDir, creating missing tables and
// validating the existing ones. Pass an empty dataDir for an in-memory
// database.
func Open(ctx context.Context, dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := ":memory:"
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "history.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn := sqlite.New()
	// SQLite doesn't support concurrent writes.
	if err := conn.Connect(connector.ConnectionConfig{DSN: dsn, MaxOpenConns: 1}); err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{conn: conn, db: conn.DB(), logger: logger}
	if err := s.prepare(ctx); err != nil {
		conn.Disconnect()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare(ctx context.Context) error {
	hs, err := historySchema()
	if err != nil {
		return fmt.Errorf("declare history tables: %w", err)
	}

	existing, err := s.conn.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("list history tables: %w", err)
	}
	if _, err := recreate.New(s.db, s.conn, s.logger).EnsureTables(ctx, hs, existing); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}

	mismatches, err := drift.NewValidator(s.conn, s.conn.TypeMap(), s.logger).Validate(ctx, hs)
	if err != nil {
		return fmt.Errorf("validate history tables: %w", err)
	}
	if len(mismatches) > 0 {
		errs := make([]error, len(mismatches))
		for i, m := range mismatches {
			errs[i] = errors.New(m.Message)
		}
		return fmt.Errorf("history database does not match its schema: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Disconnect()
}

// CheckRun is one recorded drift check.
type CheckRun struct {
	ID            int64     `db:"id" json:"-"`
	RunID         string    `db:"run_id" json:"run_id"`
	Service       string    `db:"service" json:"service"`
	Schema        string    `db:"schema_name" json:"schema"`
	Dialect       string    `db:"dialect" json:"dialect"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	FinishedAt    time.Time `db:"finished_at" json:"finished_at"`
	MismatchCount int       `db:"mismatch_count" json:"mismatch_count"`
	HasDrift      bool      `db:"has_drift" json:"has_drift"`
	Findings      []Finding `db:"-" json:"findings,omitempty"`
}

// Finding is one recorded mismatch of a check run.
type Finding struct {
	Kind     string `db:"kind" json:"kind"`
	Table    string `db:"table_name" json:"table"`
	Column   string `db:"column_name" json:"column,omitempty"`
	Expected string `db:"expected" json:"expected,omitempty"`
	Actual   string `db:"actual" json:"actual,omitempty"`
	Message  string `db:"message" json:"message"`
}

var runColumns = []string{
	"id", "run_id", "service", "schema_name", "dialect",
	"started_at", "finished_at", "mismatch_count", "has_drift",
}

// RecordCheck stores a drift report and its mismatches in one transaction.
func (s *Store) RecordCheck(ctx context.Context, report drift.Report, startedAt time.Time) (*CheckRun, error) {
	run := &CheckRun{
		RunID:         uuid.NewString(),
		Service:       report.Service,
		Schema:        report.Schema,
		Dialect:       report.Dialect,
		StartedAt:     startedAt.UTC(),
		FinishedAt:    report.CheckedAt.UTC(),
		MismatchCount: len(report.Mismatches),
		HasDrift:      report.HasDrift,
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if run.ID, err = nextID(ctx, tx, checkRunTable); err != nil {
		return nil, err
	}
	q, args, err := builder.Insert(checkRunTable).Columns(runColumns...).
		Values(run.ID, run.RunID, run.Service, run.Schema, run.Dialect,
			run.StartedAt, run.FinishedAt, run.MismatchCount, run.HasDrift).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("insert check run: %w", err)
	}

	if len(report.Mismatches) > 0 {
		firstID, err := nextID(ctx, tx, checkFindingTable)
		if err != nil {
			return nil, err
		}
		ins := builder.Insert(checkFindingTable).Columns(
			"id", "check_run_id", "position", "kind", "table_name",
			"column_name", "expected", "actual", "message")
		for i, m := range report.Mismatches {
			f := Finding{
				Kind:     string(m.Kind),
				Table:    m.TableName,
				Column:   m.Column,
				Expected: m.Expected,
				Actual:   m.Actual,
				Message:  m.Message,
			}
			run.Findings = append(run.Findings, f)
			ins = ins.Values(firstID+int64(i), run.ID, i, f.Kind, f.Table, f.Column, f.Expected, f.Actual, f.Message)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("insert findings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("recorded check run", "run_id", run.RunID, "service", run.Service, "mismatches", run.MismatchCount)
	return run, nil
}

// nextID returns the next free id of table. Writers are serialized by the
// single connection and the surrounding transaction.
func nextID(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	q, args, err := builder.Select("COALESCE(MAX(id), 0) + 1").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}
	var id int64
	if err := tx.GetContext(ctx, &id, q, args...); err != nil {
		return 0, fmt.Errorf("next %s id: %w", table, err)
	}
	return id, nil
}

// ListChecks returns the most recent check runs first, without findings.
// An empty service lists every service; limit <= 0 means no limit.
func (s *Store) ListChecks(ctx context.Context, service string, limit int) ([]CheckRun, error) {
	sel := builder.Select(runColumns...).From(checkRunTable).OrderBy("started_at DESC", "id DESC")
	if service != "" {
		sel = sel.Where(sq.Eq{"service": service})
	}
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	q, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	runs := []CheckRun{}
	if err := s.db.SelectContext(ctx, &runs, q, args...); err != nil {
		return nil, fmt.Errorf("list check runs: %w", err)
	}
	return runs, nil
}

// GetCheck returns a check run and its findings by run ID.
func (s *Store) GetCheck(ctx context.Context, runID string) (*CheckRun, error) {
	q, args, err := builder.Select(runColumns...).From(checkRunTable).Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var run CheckRun
	if err := s.db.GetContext(ctx, &run, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check run %q: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("get check run: %w", err)
	}

	q, args, err = builder.
		Select("kind", "table_name", "column_name", "expected", "actual", "message").
		From(checkFindingTable).
		Where(sq.Eq{"check_run_id": run.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	if err := s.db.SelectContext(ctx, &run.Findings, q, args...); err != nil {
		return nil, fmt.Errorf("get findings: %w", err)
	}
	return &run, nil
}
