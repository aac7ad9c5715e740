// Package history keeps a journal of past sync runs in sqlite. Only run
// summaries are stored, never the activities themselves.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"corossync/internal/components/assert"
	"corossync/internal/components/telemetry"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// migrations are applied in order, a migration's version is its index + 1.
var migrations = [][]string{
	{Schema},
}

const (
	report_journal_record = "journal.record"
	report_journal_list   = "journal.list"
)

type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Scheme        string
	PagesFetched  int
	Records       int
	StoppedReason string
	// FailureKind is empty for successful runs.
	FailureKind string
	Detail      string
	OutputPath  string
	Written     bool
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Journal struct {
	db  *sql.DB
	tel telemetry.API
}

// Open opens (creating if needed) the journal at path and brings its schema up
// to date.
func Open(ctx context.Context, path string, tel telemetry.API) (*Journal, error) {
	assert.NotNil(tel, "tel")

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		_, err = db.ExecContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	err = migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:  db,
		tel: telemetry.NewScopedAPI("history", tel),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `create table if not exists schema_migrations (
		version integer primary key,
		applied_at integer not null
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1

		var exists int
		err = db.QueryRowContext(ctx, "select count(*) from schema_migrations where version = ?", version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range stmts {
			_, err = tx.ExecContext(ctx, stmt)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		_, err = tx.ExecContext(
			ctx,
			"insert into schema_migrations (version, applied_at) values (?, ?)",
			version, time.Now().UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}

	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores run, an ID is generated when run has none.
func (j *Journal) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := j.db.ExecContext(
		ctx,
		`insert into run (
			id, started_at, finished_at, scheme, pages_fetched, records,
			stopped_reason, failure_kind, detail, output_path, written
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Scheme,
		run.PagesFetched,
		run.Records,
		run.StoppedReason,
		run.FailureKind,
		run.Detail,
		run.OutputPath,
		run.Written,
	)
	if err != nil {
		j.tel.ReportBroken(report_journal_record, err, run.ID)
		return run, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, most recent first. A limit <= 0 returns
// every run.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(
		ctx,
		`select
			id, started_at, finished_at, scheme, pages_fetched, records,
			stopped_reason, failure_kind, detail, output_path, written
		from run
		order by started_at desc, rowid desc
		limit ?`,
		limit,
	)
	if err != nil {
		j.tel.ReportBroken(report_journal_list, err)
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt int64
		err = rows.Scan(
			&run.ID,
			&startedAt,
			&finishedAt,
			&run.Scheme,
			&run.PagesFetched,
			&run.Records,
			&run.StoppedReason,
			&run.FailureKind,
			&run.Detail,
			&run.OutputPath,
			&run.Written,
		)
		if err != nil {
			j.tel.ReportBroken(report_journal_list, err)
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.FinishedAt = time.UnixMilli(finishedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
