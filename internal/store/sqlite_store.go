package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"modelprof-mcp/internal/optable"
	"modelprof-mcp/internal/profiler"
)

// ErrRunNotFound reports an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created INTEGER NOT NULL,
	model_path TEXT NOT NULL,
	units TEXT NOT NULL,
	full_profile INTEGER NOT NULL,
	total_operations INTEGER NOT NULL,
	total_cpu INTEGER NOT NULL,
	total_gpu INTEGER NOT NULL,
	total_ane INTEGER NOT NULL,
	compile_median_ms REAL NOT NULL,
	load_median_ms REAL NOT NULL,
	predict_median_ms REAL NOT NULL,
	table_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`

// SQLiteStore keeps run history in a single sqlite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun persists one run and returns its generated ID.
func (s *SQLiteStore) SaveRun(meta RunMeta, result *profiler.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate run ID: %w", err)
	}

	tableJSON, err := result.Table.Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize operation table: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (
			id, created, model_path, units, full_profile,
			total_operations, total_cpu, total_gpu, total_ane,
			compile_median_ms, load_median_ms, predict_median_ms, table_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().Unix(), meta.ModelPath, meta.Units, boolToInt(meta.FullProfile),
		result.Counts.TotalOperations, result.Counts.TotalCPU, result.Counts.TotalGPU, result.Counts.TotalANE,
		result.Timings.Compile.Median(), result.Timings.Load.Median(), result.Timings.Predict.Median(),
		string(tableJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id.String(), nil
}

// ListRuns returns all stored runs, newest first.
func (s *SQLiteStore) ListRuns() ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, created, model_path, units, full_profile,
			total_operations, total_cpu, total_gpu, total_ane,
			compile_median_ms, load_median_ms, predict_median_ms
		FROM runs ORDER BY created DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var summary RunSummary
		var created int64
		var fullProfile int
		if err := rows.Scan(
			&summary.ID, &created, &summary.Meta.ModelPath, &summary.Meta.Units, &fullProfile,
			&summary.Counts.TotalOperations, &summary.Counts.TotalCPU,
			&summary.Counts.TotalGPU, &summary.Counts.TotalANE,
			&summary.CompileMedianMs, &summary.LoadMedianMs, &summary.PredictMedianMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summary.Created = time.Unix(created, 0)
		summary.Meta.FullProfile = fullProfile != 0
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// GetRunTable rebuilds a stored run's operation table.
func (s *SQLiteStore) GetRunTable(id string) (*optable.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tableJSON string
	err := s.db.QueryRow(`SELECT table_json FROM runs WHERE id = ?`, id).Scan(&tableJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %q: %w", id, err)
	}
	return optable.Parse([]byte(tableJSON))
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
