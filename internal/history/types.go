// Package history keeps an SQLite record of provisioning runs so past
// outcomes can be listed per run and per language.
package history

import "time"

// Outcome statuses of a language in a run.
const (
	StatusConfigured = "configured"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// RunRecord is one stored provisioning run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Configured int       `json:"configured"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// OutcomeRecord is the stored result of one language in a run.
type OutcomeRecord struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Language    string    `json:"language"`
	Status      string    `json:"status"`
	RuleSetPath string    `json:"ruleset_path,omitempty"`
	Assemblies  int       `json:"assemblies"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// OutcomeQuery filters language outcomes.
type OutcomeQuery struct {
	// Language filters by language key
	Language string
	// Status filters by outcome status
	Status string
	// Since filters by run start
	Since time.Time
	// Limit restricts result count (default 100)
	Limit int
}

// Stats contains aggregate statistics from the history database.
type Stats struct {
	TotalRuns  int64            `json:"total_runs"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByLanguage map[string]int64 `json:"by_language"`
}
