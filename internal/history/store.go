package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JNZader/sonarprep/internal/report"
)

// Store provides SQLite-based run history storage.
type Store struct {
	db *sql.DB
}

// StoreConfig configures the history store.
type StoreConfig struct {
	// Path is the SQLite database file path
	Path string
}

// NewStore opens or creates the history database.
func NewStore(cfg StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL lets parallel builds read while one writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			duration TEXT NOT NULL,
			configured INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			language TEXT NOT NULL,
			status TEXT NOT NULL,
			ruleset_path TEXT,
			assemblies INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_language ON outcomes(language)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// RecordRun stores a run summary and its language outcomes in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, summary *report.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, duration, configured, skipped, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.StartedAt.UnixMilli(), summary.Duration,
		summary.Configured(), countSkipped(summary), summary.Failed(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes (
		run_id, language, status, ruleset_path, assemblies, error
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, l := range summary.Languages {
		var rulesetPath string
		var assemblies int
		if l.Settings != nil {
			rulesetPath = l.Settings.RuleSetPath
			assemblies = len(l.Settings.AnalyzerAssemblies)
		}
		if _, err := stmt.ExecContext(ctx,
			summary.RunID, l.Language, status(l), rulesetPath, assemblies, l.Error,
		); err != nil {
			return fmt.Errorf("inserting outcome: %w", err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, duration, configured, skipped, failed
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var r RunRecord
		var started int64
		if err := rows.Scan(&r.RunID, &started, &r.Duration, &r.Configured, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns language outcomes matching q, newest run first.
func (s *Store) Outcomes(ctx context.Context, q OutcomeQuery) ([]OutcomeRecord, error) {
	var args []interface{}
	var conditions []string

	if q.Language != "" {
		conditions = append(conditions, "o.language = ?")
		args = append(args, q.Language)
	}
	if q.Status != "" {
		conditions = append(conditions, "o.status = ?")
		args = append(args, q.Status)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "r.started_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	//nolint:gosec // whereClause only holds placeholders
	query := `
		SELECT o.id, o.run_id, o.language, o.status, o.ruleset_path, o.assemblies, o.error, r.started_at
		FROM outcomes o JOIN runs r ON r.run_id = o.run_id
		` + whereClause + `
		ORDER BY r.started_at DESC, o.id
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	records := make([]OutcomeRecord, 0)
	for rows.Next() {
		var r OutcomeRecord
		var rulesetPath, errMsg sql.NullString
		var started int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Language, &r.Status, &rulesetPath, &r.Assemblies, &errMsg, &started); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.RuleSetPath = rulesetPath.String
		r.Error = errMsg.String
		r.StartedAt = time.UnixMilli(started)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats returns aggregate statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:   make(map[string]int64),
		ByLanguage: make(map[string]int64),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	if err := s.countBy(ctx, "status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "language", stats.ByLanguage); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Store) countBy(ctx context.Context, column string, into map[string]int64) error {
	//nolint:gosec // column is one of two constants
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM outcomes GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("querying %s breakdown: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM outcomes WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`,
		cutoff.UnixMilli()); err != nil {
		return 0, fmt.Errorf("deleting outcomes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("deleting runs: %w", err)
	}
	n, _ := res.RowsAffected()

	return n, tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func status(l report.LanguageResult) string {
	switch {
	case l.Error != "":
		return StatusFailed
	case l.Skipped || l.Settings == nil:
		return StatusSkipped
	default:
		return StatusConfigured
	}
}

func countSkipped(summary *report.Summary) int {
	n := 0
	for _, l := range summary.Languages {
		if status(l) == StatusSkipped {
			n++
		}
	}
	return n
}
