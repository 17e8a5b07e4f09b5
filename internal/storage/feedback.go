package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sjawhar/mockview/internal/feedback"
)

const feedbackColumns = `id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, created_at`

// FindFeedback returns the record for (interviewID, userID) or sql.ErrNoRows.
func (s *SQLiteStore) FindFeedback(ctx context.Context, interviewID, userID string) (feedback.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE interview_id = ? AND user_id = ?`,
		interviewID,
		userID,
	)

	rec, err := scanFeedback(row)
	if err != nil {
		return feedback.Record{}, fmt.Errorf("query feedback for interview %s: %w", interviewID, err)
	}
	return rec, nil
}

// InsertFeedback stores a new record and returns its id. A second record for
// the same (interview, user) pair fails with ErrFeedbackExists.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, rec feedback.Record) (string, error) {
	if strings.TrimSpace(rec.InterviewID) == "" || strings.TrimSpace(rec.UserID) == "" {
		return "", errors.New("feedback interview id and user id are required")
	}

	cols, err := encodeAssessment(rec.Assessment)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback(`+feedbackColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(interview_id, user_id) DO NOTHING`,
		id,
		rec.InterviewID,
		rec.UserID,
		rec.TotalScore,
		cols.categories,
		cols.strengths,
		cols.improvements,
		rec.FinalAssessment,
		formatTime(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert feedback for interview %s: %w", rec.InterviewID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert feedback rows affected: %w", err)
	}
	if rows == 0 {
		return "", fmt.Errorf("insert feedback for interview %s: %w", rec.InterviewID, ErrFeedbackExists)
	}
	return id, nil
}

// UpdateFeedback overwrites the assessment of record id. The record must
// belong to rec.InterviewID and rec.UserID; otherwise sql.ErrNoRows.
func (s *SQLiteStore) UpdateFeedback(ctx context.Context, id string, rec feedback.Record) error {
	cols, err := encodeAssessment(rec.Assessment)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback
		 SET total_score = ?, category_scores = ?, strengths = ?, areas_for_improvement = ?, final_assessment = ?, created_at = ?
		 WHERE id = ? AND interview_id = ? AND user_id = ?`,
		rec.TotalScore,
		cols.categories,
		cols.strengths,
		cols.improvements,
		rec.FinalAssessment,
		formatTime(s.now()),
		id,
		rec.InterviewID,
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("update feedback %s: %w", id, err)
	}
	return checkAffected(res, "update feedback")
}

type assessmentColumns struct {
	categories   string
	strengths    string
	improvements string
}

func encodeAssessment(a feedback.Assessment) (assessmentColumns, error) {
	var cols assessmentColumns
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&cols.categories, nonNil(a.CategoryScores)},
		{&cols.strengths, nonNil(a.Strengths)},
		{&cols.improvements, nonNil(a.AreasForImprovement)},
	} {
		data, err := json.Marshal(f.v)
		if err != nil {
			return cols, fmt.Errorf("encode feedback: %w", err)
		}
		*f.dst = string(data)
	}
	return cols, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (feedback.Record, error) {
	var rec feedback.Record
	var categories, strengths, improvements, createdAt string
	if err := row.Scan(
		&rec.ID, &rec.InterviewID, &rec.UserID, &rec.TotalScore,
		&categories, &strengths, &improvements, &rec.FinalAssessment, &createdAt,
	); err != nil {
		return feedback.Record{}, err
	}

	if err := json.Unmarshal([]byte(categories), &rec.CategoryScores); err != nil {
		return feedback.Record{}, fmt.Errorf("decode category scores: %w", err)
	}
	if err := json.Unmarshal([]byte(strengths), &rec.Strengths); err != nil {
		return feedback.Record{}, fmt.Errorf("decode strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(improvements), &rec.AreasForImprovement); err != nil {
		return feedback.Record{}, fmt.Errorf("decode areas for improvement: %w", err)
	}

	parsed, err := parseTime(createdAt)
	if err != nil {
		return feedback.Record{}, fmt.Errorf("parse feedback created_at: %w", err)
	}
	rec.CreatedAt = parsed
	return rec, nil
}
