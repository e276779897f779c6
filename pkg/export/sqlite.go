package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

func createSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

		CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			created_at         TEXT NOT NULL,
			repository         TEXT NOT NULL DEFAULT '',
			pull_request       INTEGER NOT NULL DEFAULT 0,
			revision           TEXT NOT NULL DEFAULT '',
			all_lines_total    INTEGER NOT NULL DEFAULT 0,
			all_lines_hit      INTEGER NOT NULL DEFAULT 0,
			all_lines_pct      REAL NOT NULL DEFAULT 0.0,
			changed_lines_total INTEGER NOT NULL DEFAULT 0,
			changed_lines_hit  INTEGER NOT NULL DEFAULT 0,
			changed_lines_pct  REAL NOT NULL DEFAULT 0.0,
			changed_total      INTEGER NOT NULL DEFAULT 0,
			changed_matched    INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS file_stats (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			file_path       TEXT NOT NULL,
			lines_hit       INTEGER NOT NULL DEFAULT 0,
			lines_total     INTEGER NOT NULL DEFAULT 0,
			functions_hit   INTEGER NOT NULL DEFAULT 0,
			functions_total INTEGER NOT NULL DEFAULT 0,
			branches_hit    INTEGER NOT NULL DEFAULT 0,
			branches_total  INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS directory_stats (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			dir_path        TEXT NOT NULL,
			depth           INTEGER NOT NULL DEFAULT 0,
			lines_hit       INTEGER NOT NULL DEFAULT 0,
			lines_total     INTEGER NOT NULL DEFAULT 0,
			lines_pct       REAL NOT NULL DEFAULT 0.0,
			functions_hit   INTEGER NOT NULL DEFAULT 0,
			functions_total INTEGER NOT NULL DEFAULT 0,
			functions_pct   REAL NOT NULL DEFAULT 0.0,
			branches_hit    INTEGER NOT NULL DEFAULT 0,
			branches_total  INTEGER NOT NULL DEFAULT 0,
			branches_pct    REAL NOT NULL DEFAULT 0.0
		);

		CREATE INDEX IF NOT EXISTS idx_file_stats_run ON file_stats(run_id);
		CREATE INDEX IF NOT EXISTS idx_directory_stats_run ON directory_stats(run_id);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	}

	var currentVersion int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, schemaVersion)
	}

	return nil
}

// OpenSQLite opens (creating if needed) the database at dbPath and ensures
// the schema is current.
func OpenSQLite(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WriteSQLite stores run in db inside a single transaction
func WriteSQLite(ctx context.Context, db *sql.DB, run Run) error {
	r := run.Report
	if r == nil {
		return fmt.Errorf("run %s has no report", run.ID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, repository, pull_request, revision,
			all_lines_total, all_lines_hit, all_lines_pct,
			changed_lines_total, changed_lines_hit, changed_lines_pct,
			changed_total, changed_matched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339), run.Repository, run.PullRequest, run.Revision,
		r.AllFiles.LinesTotal, r.AllFiles.LinesHit, r.AllFiles.LinesCoverage,
		r.ChangedFiles.LinesTotal, r.ChangedFiles.LinesHit, r.ChangedFiles.LinesCoverage,
		r.ChangedTotal, r.ChangedMatched)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, fd := range r.FileDetails {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_stats (run_id, file_path, lines_hit, lines_total,
				functions_hit, functions_total, branches_hit, branches_total)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, fd.File, fd.Lines.Hit, fd.Lines.Total,
			fd.Functions.Hit, fd.Functions.Total, fd.Branches.Hit, fd.Branches.Total)
		if err != nil {
			return fmt.Errorf("insert file stats for %s: %w", fd.File, err)
		}
	}

	for _, n := range FlattenTree(r.Tree) {
		if !n.IsDirectory {
			continue
		}
		s := n.Stats
		_, err := tx.ExecContext(ctx, `
			INSERT INTO directory_stats (run_id, dir_path, depth,
				lines_hit, lines_total, lines_pct,
				functions_hit, functions_total, functions_pct,
				branches_hit, branches_total, branches_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, n.Path, n.Depth,
			s.Lines.Hit, s.Lines.Total, s.Lines.Percentage,
			s.Functions.Hit, s.Functions.Total, s.Functions.Percentage,
			s.Branches.Hit, s.Branches.Total, s.Branches.Percentage)
		if err != nil {
			return fmt.Errorf("insert directory stats for %q: %w", n.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
