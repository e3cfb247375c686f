package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	OutcomePrimary   = "primary"
	OutcomeFallback  = "fallback"
	OutcomeDiscarded = "discarded"
)

// Store is the run ledger: one row per augmentation run plus one row per
// processed input record.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		service TEXT NOT NULL,
		primary_lang TEXT NOT NULL,
		fallback_lang TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		rows_processed INTEGER NOT NULL DEFAULT 0,
		fallback_usage INTEGER NOT NULL DEFAULT 0,
		fallback_fail INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- row_outcomes records what happened to each input record of a run
	CREATE TABLE IF NOT EXISTS row_outcomes (
		run_id TEXT NOT NULL,
		row_idx INTEGER NOT NULL,
		record_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT '',
		source_text TEXT NOT NULL,
		output_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, row_idx),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON row_outcomes(run_id, outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RunParams describes a run at the moment it starts.
type RunParams struct {
	InputFile    string
	Service      string
	PrimaryLang  string
	FallbackLang string
}

// Run is a row from the runs table.
type Run struct {
	ID            string
	InputFile     string
	Service       string
	PrimaryLang   string
	FallbackLang  string
	Status        string
	RowsProcessed int
	FallbackUsage int
	FallbackFail  int
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Counters are the final statistics of a run.
type Counters struct {
	RowsProcessed int
	FallbackUsage int
	FallbackFail  int
}

// OutcomeEntry is a row from the row_outcomes table.
type OutcomeEntry struct {
	RowIdx     int
	RecordID   string
	Outcome    string
	Lang       string
	SourceText string
	OutputText string
}

// CreateRun inserts a running run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, p RunParams) (string, error) {
	id := uuid.New().String()
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_file, service, primary_lang, fallback_lang, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.InputFile, p.Service, p.PrimaryLang, p.FallbackLang, StatusRunning, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun stores the final counters. A non-nil runErr marks the run failed.
func (s *Store) FinishRun(ctx context.Context, runID string, c Counters, runErr error) error {
	status, errText := StatusCompleted, ""
	if runErr != nil {
		status, errText = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rows_processed = ?, fallback_usage = ?, fallback_fail = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, c.RowsProcessed, c.FallbackUsage, c.FallbackFail, errText, time.Now(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_file, service, primary_lang, fallback_lang, status, rows_processed, fallback_usage, fallback_fail, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID).Scan(&r.ID, &r.InputFile, &r.Service, &r.PrimaryLang, &r.FallbackLang, &r.Status,
		&r.RowsProcessed, &r.FallbackUsage, &r.FallbackFail, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_file, service, primary_lang, fallback_lang, status, rows_processed, fallback_usage, fallback_fail, error, created_at, updated_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.InputFile, &r.Service, &r.PrimaryLang, &r.FallbackLang, &r.Status,
			&r.RowsProcessed, &r.FallbackUsage, &r.FallbackFail, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run together with its outcomes.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM row_outcomes WHERE run_id = ?`, runID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return tx.Commit()
}

// SaveOutcome records what happened to one input record.
func (s *Store) SaveOutcome(ctx context.Context, runID string, e OutcomeEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO row_outcomes (run_id, row_idx, record_id, outcome, lang, source_text, output_text) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, e.RowIdx, e.RecordID, e.Outcome, e.Lang, normalizeText(e.SourceText), normalizeText(e.OutputText))
	return err
}

// ListOutcomes returns a run's outcomes in input order. An empty outcome
// filter returns every row.
func (s *Store) ListOutcomes(ctx context.Context, runID, outcome string) ([]OutcomeEntry, error) {
	query := `SELECT row_idx, record_id, outcome, lang, source_text, output_text FROM row_outcomes WHERE run_id = ?`
	args := []interface{}{runID}
	if outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, outcome)
	}
	query += ` ORDER BY row_idx`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OutcomeEntry
	for rows.Next() {
		var e OutcomeEntry
		if err := rows.Scan(&e.RowIdx, &e.RecordID, &e.Outcome, &e.Lang, &e.SourceText, &e.OutputText); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OutcomeCounts returns the number of rows per outcome for a run.
func (s *Store) OutcomeCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM row_outcomes WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Ledger binds the store to a single run.
func (s *Store) Ledger(runID string) *RunLedger {
	return &RunLedger{store: s, runID: runID}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunLedger records outcomes for one run.
type RunLedger struct {
	store *Store
	runID string
}

func (l *RunLedger) RunID() string {
	return l.runID
}

func (l *RunLedger) RecordOutcome(ctx context.Context, e OutcomeEntry) error {
	return l.store.SaveOutcome(ctx, l.runID, e)
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// that stored texts compare equal regardless of the service's output form.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
