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

type Resume struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription"`
	ResumeText     string          `json:"resumeText"`
	FilePath       string          `json:"filePath"`
	Feedback       json.RawMessage `json:"feedback,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

const resumeColumns = `id, user_id, company_name, job_title, job_description, resume_text, file_path, feedback, created_at`

func (s *SQLiteStore) CreateResume(ctx context.Context, r Resume) (Resume, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return Resume{}, errors.New("resume user id is required")
	}

	r.ID = uuid.NewString()
	r.CreatedAt = s.now().UTC()
	r.Feedback = nil

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resumes(`+resumeColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		r.ID,
		r.UserID,
		r.CompanyName,
		r.JobTitle,
		r.JobDescription,
		r.ResumeText,
		r.FilePath,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return Resume{}, fmt.Errorf("create resume for user %s: %w", r.UserID, err)
	}
	return r, nil
}

// GetResume returns the resume id owned by userID, or sql.ErrNoRows.
func (s *SQLiteStore) GetResume(ctx context.Context, id, userID string) (Resume, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	r, err := scanResume(row)
	if err != nil {
		return Resume{}, fmt.Errorf("query resume %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLiteStore) ListResumesByUser(ctx context.Context, userID string) ([]Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query resumes for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	resumes := make([]Resume, 0, 8)
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resume rows: %w", err)
	}
	return resumes, nil
}

// UpdateResumeFeedback stores the analysis JSON on the resume row.
func (s *SQLiteStore) UpdateResumeFeedback(ctx context.Context, id, userID string, analysis json.RawMessage) error {
	if !json.Valid(analysis) {
		return fmt.Errorf("update resume %s feedback: invalid json", id)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE resumes SET feedback = ? WHERE id = ? AND user_id = ?`,
		string(analysis),
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("update resume %s feedback: %w", id, err)
	}
	return checkAffected(res, "update resume feedback")
}

func scanResume(row rowScanner) (Resume, error) {
	var r Resume
	var analysis sql.NullString
	var createdAt string
	if err := row.Scan(
		&r.ID, &r.UserID, &r.CompanyName, &r.JobTitle, &r.JobDescription,
		&r.ResumeText, &r.FilePath, &analysis, &createdAt,
	); err != nil {
		return Resume{}, err
	}

	if analysis.Valid {
		r.Feedback = json.RawMessage(analysis.String)
	}

	parsed, err := parseTime(createdAt)
	if err != nil {
		return Resume{}, fmt.Errorf("parse resume created_at: %w", err)
	}
	r.CreatedAt = parsed
	return r, nil
}
