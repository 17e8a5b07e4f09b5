package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/sjawhar/mockview/internal/llm"
	"github.com/sjawhar/mockview/internal/metrics"
	"github.com/sjawhar/mockview/internal/transcribe"
)

// ErrDuplicate is returned by stores when a record for the same
// (interview, user) pair already exists.
var ErrDuplicate = errors.New("feedback already exists")

// Store persists feedback records. FindFeedback returns sql.ErrNoRows when
// no record exists; InsertFeedback returns an error wrapping ErrDuplicate on
// a (interview, user) conflict.
type Store interface {
	FindFeedback(ctx context.Context, interviewID, userID string) (Record, error)
	InsertFeedback(ctx context.Context, rec Record) (string, error)
	UpdateFeedback(ctx context.Context, id string, rec Record) error
}

type Request struct {
	InterviewID string
	UserID      string
	Transcript  []transcribe.Turn
	// FeedbackID selects an existing record to overwrite (retake).
	FeedbackID string
}

type Generator struct {
	client  llm.Client
	store   Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewGenerator builds a Generator. A zero timeout leaves request deadlines
// to the caller's context and the provider SDK.
func NewGenerator(client llm.Client, store Store, logger *slog.Logger, timeout time.Duration) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, store: store, logger: logger, timeout: timeout}
}

// Generate grades a finished interview and persists the result, returning
// the feedback id. Failures are *Error values classified by Kind.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	id, result, err := g.generate(ctx, req)
	if err != nil {
		result = string(KindOf(err))
		g.logger.Error("feedback generation failed",
			"interview_id", req.InterviewID, "user_id", req.UserID, "kind", result, "error", err)
	} else {
		g.logger.Info("feedback generation finished",
			"interview_id", req.InterviewID, "user_id", req.UserID, "feedback_id", id, "result", result)
	}
	metrics.FeedbackGenerations.WithLabelValues(result).Inc()
	return id, err
}

func (g *Generator) generate(ctx context.Context, req Request) (string, string, error) {
	if strings.TrimSpace(req.InterviewID) == "" || strings.TrimSpace(req.UserID) == "" {
		return "", "", newError(ErrValidation, "Missing required fields", nil)
	}
	if len(req.Transcript) == 0 {
		return "", "", newError(ErrEmptyTranscript, "No interview transcript available", nil)
	}

	if req.FeedbackID == "" {
		existing, err := g.store.FindFeedback(ctx, req.InterviewID, req.UserID)
		switch {
		case err == nil:
			return existing.ID, "existing", nil
		case !errors.Is(err, sql.ErrNoRows):
			return "", "", newError(ErrPersistence, "Failed to look up existing feedback", err)
		}
	}

	if g.client == nil {
		return "", "", newError(ErrUpstream, "Feedback generation is not configured", nil)
	}

	assessment, err := g.assess(ctx, req.Transcript)
	if err != nil {
		return "", "", err
	}

	rec := Record{InterviewID: req.InterviewID, UserID: req.UserID, Assessment: assessment}

	if req.FeedbackID != "" {
		if err := g.store.UpdateFeedback(ctx, req.FeedbackID, rec); err != nil {
			return "", "", newError(ErrPersistence, "Failed to save feedback", err)
		}
		return req.FeedbackID, "updated", nil
	}

	id, err := g.store.InsertFeedback(ctx, rec)
	if errors.Is(err, ErrDuplicate) {
		// A concurrent generation for the same pair won the insert.
		winner, findErr := g.store.FindFeedback(ctx, req.InterviewID, req.UserID)
		if findErr != nil {
			return "", "", newError(ErrPersistence, "Failed to save feedback", errors.Join(err, findErr))
		}
		return winner.ID, "existing", nil
	}
	if err != nil {
		return "", "", newError(ErrPersistence, "Failed to save feedback", err)
	}
	return id, "created", nil
}

func (g *Generator) assess(ctx context.Context, turns []transcribe.Turn) (Assessment, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.client.Complete(ctx, buildMessages(turns), llm.WithJSONResponse())
	metrics.LLMRequestDuration.WithLabelValues("feedback").Observe(time.Since(start).Seconds())
	if err != nil {
		return Assessment{}, classifyUpstream(err)
	}

	return ParseAssessment(raw)
}

func classifyUpstream(err error) error {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return newError(ErrUpstreamQuota, "Quota exceeded on model provider.", err)
	case errors.Is(err, llm.ErrUnauthorized):
		return newError(ErrUpstreamAuth, "Invalid model provider API key", err)
	case errors.Is(err, llm.ErrEmptyResponse):
		return newError(ErrUpstreamParse, "Model returned an empty response", err)
	case errors.Is(err, llm.ErrUnavailable):
		return newError(ErrUpstream, "Model provider is temporarily unavailable", err)
	default:
		return newError(ErrUpstream, "Model provider request failed", err)
	}
}

// ParseAssessment decodes and validates a model response. Category names are
// matched ignoring case, spacing and punctuation, then rewritten to the
// canonical names in Categories order. Scores outside [0,100], missing or
// repeated categories are rejected, never fixed up.
func ParseAssessment(raw string) (Assessment, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return Assessment{}, newError(ErrUpstreamParse, "Model returned an empty response", nil)
	}

	var a Assessment
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return Assessment{}, newError(ErrUpstreamParse, "Model returned an invalid feedback response", err)
	}
	if err := normalizeAssessment(&a); err != nil {
		return Assessment{}, newError(ErrUpstreamParse, "Model returned an invalid feedback response", err)
	}
	return a, nil
}

func normalizeAssessment(a *Assessment) error {
	if a.TotalScore < 0 || a.TotalScore > 100 {
		return fmt.Errorf("totalScore %d out of range", a.TotalScore)
	}
	if len(a.CategoryScores) != len(Categories) {
		return fmt.Errorf("expected %d categories, got %d", len(Categories), len(a.CategoryScores))
	}

	index := make(map[string]int, len(Categories))
	for i, name := range Categories {
		index[categoryKey(name)] = i
	}

	ordered := make([]CategoryScore, len(Categories))
	seen := make([]bool, len(Categories))
	for _, c := range a.CategoryScores {
		i, ok := index[categoryKey(c.Name)]
		if !ok {
			return fmt.Errorf("unknown category %q", c.Name)
		}
		if seen[i] {
			return fmt.Errorf("category %q repeated", c.Name)
		}
		if c.Score < 0 || c.Score > 100 {
			return fmt.Errorf("category %q: score %d out of range", c.Name, c.Score)
		}
		seen[i] = true
		c.Name = Categories[i]
		ordered[i] = c
	}
	a.CategoryScores = ordered
	return nil
}

// categoryKey folds a category name to lower-case letters and digits, so
// "Problem Solving" and "problem-solving" compare equal.
func categoryKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
