package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sjawhar/mockview/internal/feedback"
)

// ErrFeedbackExists is returned by InsertFeedback when the (interview, user)
// pair already has a record.
var ErrFeedbackExists = feedback.ErrDuplicate

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "mockview.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"interviews", `
			CREATE TABLE IF NOT EXISTS interviews (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				role TEXT NOT NULL,
				type TEXT NOT NULL,
				level TEXT NOT NULL,
				techstack TEXT NOT NULL DEFAULT '[]',
				questions TEXT NOT NULL DEFAULT '[]',
				finalized INTEGER NOT NULL DEFAULT 0,
				cover_image TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			);`},
		{"feedback", `
			CREATE TABLE IF NOT EXISTS feedback (
				id TEXT PRIMARY KEY,
				interview_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				total_score INTEGER NOT NULL,
				category_scores TEXT NOT NULL,
				strengths TEXT NOT NULL,
				areas_for_improvement TEXT NOT NULL,
				final_assessment TEXT NOT NULL,
				created_at TEXT NOT NULL,
				UNIQUE(interview_id, user_id)
			);`},
		{"resumes", `
			CREATE TABLE IF NOT EXISTS resumes (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_name TEXT NOT NULL DEFAULT '',
				job_title TEXT NOT NULL DEFAULT '',
				job_description TEXT NOT NULL DEFAULT '',
				resume_text TEXT NOT NULL,
				file_path TEXT NOT NULL DEFAULT '',
				feedback TEXT,
				created_at TEXT NOT NULL
			);`},
	}
	for _, t := range tables {
		if _, err := s.db.Exec(t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_interviews_user_created ON interviews(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_interviews_finalized_created ON interviews(finalized, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_resumes_user_created ON resumes(user_id, created_at)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Snapshot writes a consistent copy of the database to dest, replacing any
// existing file.
func (s *SQLiteStore) Snapshot(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("snapshot database to %s: %w", dest, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func checkAffected(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
