// Package archive provides optional SQLite-backed persistence of run
// history. It sits entirely outside the engine's no-persistent-state
// boundary (spec §3 "Lifecycle") — it is the CLI's optional reporting
// collaborator, never a component the engine reads back from. Adapted from
// the teacher's operational-state store, repurposed from live pool/token
// state to append-only archived run results.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"watcher/internal/engine"
)

// Store provides SQLite-based persistence of historical run results.
type Store struct {
	db *sql.DB
}

// RunRecord summarizes a single engine run for the `runs` table.
type RunRecord struct {
	ID             int64
	StartedAt      time.Time
	PoolsTotal     int
	PoolsAdmitted  int
	CyclesFound    int
	ResultsFound   int
	StepCapReached bool
}

// NewStore opens (creating if absent) a SQLite database at dbPath and runs
// migrations.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running archive migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			pools_total INTEGER NOT NULL,
			pools_admitted INTEGER NOT NULL,
			cycles_found INTEGER NOT NULL,
			results_found INTEGER NOT NULL,
			step_cap_reached INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			base_token TEXT NOT NULL,
			net_profit_eth REAL NOT NULL,
			input_amount REAL NOT NULL,
			path_json TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_run ON run_results(run_id, rank)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	log.Debug().Msg("archive database migrations completed")
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists one run's summary and ranked results in a single
// transaction, returning the assigned run ID.
func (s *Store) RecordRun(ctx context.Context, run RunRecord, results []engine.ArbResult, resolve func(int) string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs
		(started_at, pools_total, pools_admitted, cycles_found, results_found, step_cap_reached)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.PoolsTotal, run.PoolsAdmitted, run.CyclesFound, run.ResultsFound, run.StepCapReached)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_results
		(run_id, rank, base_token, net_profit_eth, input_amount, path_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		path := make([]string, len(r.Path))
		for j, id := range r.Path {
			path[j] = resolve(id)
		}
		pathJSON, err := json.Marshal(path)
		if err != nil {
			return 0, fmt.Errorf("marshaling path: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, runID, i+1, resolve(r.BaseID), r.NetProfitETH, r.OptInput, string(pathJSON)); err != nil {
			return 0, fmt.Errorf("inserting result %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return runID, nil
}

// RecentRuns retrieves the most recent run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, pools_total, pools_admitted, cycles_found, results_found, step_cap_reached
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.PoolsTotal, &r.PoolsAdmitted, &r.CyclesFound, &r.ResultsFound, &r.StepCapReached); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
