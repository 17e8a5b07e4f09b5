package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Interview struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	Type       string    `json:"type"`
	Level      string    `json:"level"`
	Techstack  []string  `json:"techstack"`
	Questions  []string  `json:"questions"`
	Finalized  bool      `json:"finalized"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

const interviewColumns = `id, user_id, role, type, level, techstack, questions, finalized, cover_image, created_at`

// CreateInterview stores iv with a fresh id and creation time and returns the stored value.
func (s *SQLiteStore) CreateInterview(ctx context.Context, iv Interview) (Interview, error) {
	if strings.TrimSpace(iv.UserID) == "" {
		return Interview{}, errors.New("interview user id is required")
	}

	techstack, err := json.Marshal(nonNil(iv.Techstack))
	if err != nil {
		return Interview{}, fmt.Errorf("encode techstack: %w", err)
	}
	questions, err := json.Marshal(nonNil(iv.Questions))
	if err != nil {
		return Interview{}, fmt.Errorf("encode questions: %w", err)
	}

	iv.ID = uuid.NewString()
	iv.CreatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews(`+interviewColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID,
		iv.UserID,
		iv.Role,
		iv.Type,
		iv.Level,
		string(techstack),
		string(questions),
		iv.Finalized,
		iv.CoverImage,
		formatTime(iv.CreatedAt),
	)
	if err != nil {
		return Interview{}, fmt.Errorf("create interview for user %s: %w", iv.UserID, err)
	}
	return iv, nil
}

func (s *SQLiteStore) GetInterview(ctx context.Context, id string) (Interview, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	iv, err := scanInterview(row)
	if err != nil {
		return Interview{}, fmt.Errorf("query interview %s: %w", id, err)
	}
	return iv, nil
}

// ListInterviewsByUser returns the user's interviews, newest first.
func (s *SQLiteStore) ListInterviewsByUser(ctx context.Context, userID string) ([]Interview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query interviews for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanInterviews(rows)
}

// ListLatestInterviews returns finalized interviews created by other users, newest first.
func (s *SQLiteStore) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]Interview, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE finalized = 1 AND user_id != ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		excludeUserID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest interviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanInterviews(rows)
}

func scanInterviews(rows *sql.Rows) ([]Interview, error) {
	interviews := make([]Interview, 0, 16)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview rows: %w", err)
	}
	return interviews, nil
}

func scanInterview(row rowScanner) (Interview, error) {
	var iv Interview
	var techstack, questions, createdAt string
	if err := row.Scan(
		&iv.ID, &iv.UserID, &iv.Role, &iv.Type, &iv.Level,
		&techstack, &questions, &iv.Finalized, &iv.CoverImage, &createdAt,
	); err != nil {
		return Interview{}, err
	}

	if err := json.Unmarshal([]byte(techstack), &iv.Techstack); err != nil {
		return Interview{}, fmt.Errorf("decode techstack: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &iv.Questions); err != nil {
		return Interview{}, fmt.Errorf("decode questions: %w", err)
	}

	parsed, err := parseTime(createdAt)
	if err != nil {
		return Interview{}, fmt.Errorf("parse interview created_at: %w", err)
	}
	iv.CreatedAt = parsed
	return iv, nil
}
