package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// DatabaseFile is the file name used under the state directory
const DatabaseFile = "taskslot.db"

// Store persists client-side state in SQLite
type Store struct {
	db   *sql.DB
	path string
}

// Submission is one recorded scheduling outcome
type Submission struct {
	ID        int64
	CreatedAt time.Time
	Kind      tasks.OutcomeKind
	Status    int
	Message   string
	TaskCount int
	StartDate string
	EndDate   string
}

// Summary aggregates recorded submissions
type Summary struct {
	Total            int
	Succeeded        int
	Rejected         int
	ServerFailures   int
	NetworkFailures  int
	SuccessRate      float64
	AverageTaskCount float64
}

// Open opens (or creates) the database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writes serialized within the process
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

// OpenInDir opens the database file inside stateDir
func OpenInDir(stateDir string) (*Store, error) {
	return Open(filepath.Join(stateDir, DatabaseFile))
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		kind TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		task_count INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Setting returns the stored value for key and whether it exists
func (s *Store) Setting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value
func (s *Store) SetSetting(key, value string) error {
	query := `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// RecordOutcome stores a reconciled outcome together with the request it answered
func (s *Store) RecordOutcome(outcome tasks.Outcome, req tasks.SchedulingRequest) error {
	message := outcome.Message
	if outcome.Kind == tasks.TransportFailure && outcome.Cause != nil {
		message = outcome.Cause.Error()
	}

	query := `
	INSERT INTO submissions (created_at, kind, status, message, task_count, start_date, end_date)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		time.Now().UnixNano(), outcome.Kind.String(), outcome.Status, message,
		len(req.Selections), req.StartDate, req.EndDate)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// Recent returns up to limit submissions, newest first. A non-positive limit returns all.
func (s *Store) Recent(limit int) ([]Submission, error) {
	query := `
	SELECT id, created_at, kind, status, message, task_count, start_date, end_date
	FROM submissions
	ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var results []Submission
	for rows.Next() {
		var sub Submission
		var createdAt int64
		var kind string

		err := rows.Scan(&sub.ID, &createdAt, &kind, &sub.Status, &sub.Message,
			&sub.TaskCount, &sub.StartDate, &sub.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		sub.CreatedAt = time.Unix(0, createdAt)
		sub.Kind = parseKind(kind)
		results = append(results, sub)
	}

	return results, rows.Err()
}

// Summarize aggregates every recorded submission
func (s *Store) Summarize() (*Summary, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(1), SUM(task_count) FROM submissions GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize submissions: %w", err)
	}
	defer rows.Close()

	summary := &Summary{}
	totalTasks := 0
	for rows.Next() {
		var kind string
		var count, taskCount int
		if err := rows.Scan(&kind, &count, &taskCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}

		summary.Total += count
		totalTasks += taskCount
		switch parseKind(kind) {
		case tasks.Success:
			summary.Succeeded += count
		case tasks.ClientRejected:
			summary.Rejected += count
		case tasks.ServerFailure:
			summary.ServerFailures += count
		case tasks.TransportFailure:
			summary.NetworkFailures += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Total)
		summary.AverageTaskCount = float64(totalTasks) / float64(summary.Total)
	}

	return summary, nil
}

// Clear removes all recorded submissions
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM submissions`)
	return err
}

func parseKind(kind string) tasks.OutcomeKind {
	for _, k := range []tasks.OutcomeKind{tasks.Success, tasks.ClientRejected, tasks.ServerFailure, tasks.TransportFailure} {
		if k.String() == kind {
			return k
		}
	}
	return tasks.OutcomeKind(-1)
}
