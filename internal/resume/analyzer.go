// Package resume runs ATS analysis of stored resumes through the language model.
package resume

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sjawhar/mockview/internal/llm"
	"github.com/sjawhar/mockview/internal/metrics"
	"github.com/sjawhar/mockview/internal/storage"
)

var (
	ErrMissingID     = errors.New("resume id is required")
	ErrNotFound      = errors.New("resume not found")
	ErrNotConfigured = errors.New("resume analysis is not configured")
	ErrInvalidOutput = errors.New("model returned an invalid analysis")
)

type Store interface {
	GetResume(ctx context.Context, id, userID string) (storage.Resume, error)
	UpdateResumeFeedback(ctx context.Context, id, userID string, analysis json.RawMessage) error
}

type Analyzer struct {
	client  llm.Client
	store   Store
	logger  *slog.Logger
	timeout time.Duration
}

func NewAnalyzer(client llm.Client, store Store, logger *slog.Logger, timeout time.Duration) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, store: store, logger: logger, timeout: timeout}
}

// Analyze grades the resume and writes the result back to it.
func (a *Analyzer) Analyze(ctx context.Context, resumeID, userID string) (Feedback, error) {
	fb, err := a.analyze(ctx, resumeID, userID)
	result := "ok"
	switch {
	case errors.Is(err, ErrMissingID):
		result = "invalid"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, llm.ErrRateLimited):
		result = "quota"
	case err != nil:
		result = "error"
	}
	metrics.ResumeAnalyses.WithLabelValues(result).Inc()

	if err != nil {
		a.logger.Error("resume analysis failed", "resume_id", resumeID, "user_id", userID, "error", err)
		return Feedback{}, err
	}
	a.logger.Info("resume analysis finished", "resume_id", resumeID, "user_id", userID, "score", fb.OverallScore)
	return fb, nil
}

func (a *Analyzer) analyze(ctx context.Context, resumeID, userID string) (Feedback, error) {
	if strings.TrimSpace(resumeID) == "" {
		return Feedback{}, ErrMissingID
	}

	r, err := a.store.GetResume(ctx, resumeID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Feedback{}, ErrNotFound
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("load resume: %w", err)
	}
	if strings.TrimSpace(r.ResumeText) == "" {
		return Feedback{}, fmt.Errorf("resume %s has no text to analyze", resumeID)
	}
	if a.client == nil {
		return Feedback{}, ErrNotConfigured
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.client.Complete(callCtx,
		buildMessages(r.JobTitle, r.JobDescription, r.ResumeText),
		llm.WithJSONResponse(),
		llm.WithTemperature(0.7),
	)
	metrics.LLMRequestDuration.WithLabelValues("resume").Observe(time.Since(start).Seconds())
	if err != nil {
		return Feedback{}, fmt.Errorf("analyze resume: %w", err)
	}

	fb, encoded, err := ParseFeedback(raw)
	if err != nil {
		return Feedback{}, err
	}

	if err := a.store.UpdateResumeFeedback(ctx, resumeID, userID, encoded); err != nil {
		return Feedback{}, fmt.Errorf("save resume feedback: %w", err)
	}
	return fb, nil
}

// ParseFeedback decodes a model response and re-encodes it in canonical form.
func ParseFeedback(raw string) (Feedback, json.RawMessage, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSpace(strings.TrimSuffix(body, "```"))
	if body == "" {
		return Feedback{}, nil, fmt.Errorf("%w: empty response", ErrInvalidOutput)
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(body), &fb); err != nil {
		return Feedback{}, nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	for name, score := range map[string]int{
		"score":        fb.Score,
		"overallScore": fb.OverallScore,
		"ATS":          fb.ATS.Score,
		"toneAndStyle": fb.ToneAndStyle.Score,
		"content":      fb.Content.Score,
		"structure":    fb.Structure.Score,
		"skills":       fb.Skills.Score,
	} {
		if score < 0 || score > 100 {
			return Feedback{}, nil, fmt.Errorf("%w: %s score %d out of range", ErrInvalidOutput, name, score)
		}
	}

	encoded, err := json.Marshal(fb)
	if err != nil {
		return Feedback{}, nil, fmt.Errorf("encode resume feedback: %w", err)
	}
	return fb, encoded, nil
}
