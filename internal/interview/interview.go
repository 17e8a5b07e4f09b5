// Package interview creates practice interviews with templated questions.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/sjawhar/mockview/internal/storage"
)

// MaxQuestions is the number of question templates available.
const MaxQuestions = 10

var ErrInvalidRequest = errors.New("invalid interview request")

// Covers are the cover images a new interview picks from.
var Covers = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

type Store interface {
	CreateInterview(ctx context.Context, iv storage.Interview) (storage.Interview, error)
}

type Request struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	Techstack string `json:"techstack"`
	Amount    int    `json:"amount"`
}

type Creator struct {
	store  Store
	logger *slog.Logger
	pick   func(n int) int
}

func NewCreator(store Store, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{store: store, logger: logger, pick: rand.IntN}
}

// Create stores a finalized interview for userID with generated questions.
func (c *Creator) Create(ctx context.Context, userID string, req Request) (storage.Interview, error) {
	if err := validate(userID, req); err != nil {
		return storage.Interview{}, err
	}

	techs := SplitTechstack(req.Techstack)
	iv, err := c.store.CreateInterview(ctx, storage.Interview{
		UserID:     userID,
		Role:       strings.TrimSpace(req.Role),
		Type:       strings.TrimSpace(req.Type),
		Level:      strings.TrimSpace(req.Level),
		Techstack:  techs,
		Questions:  Questions(req.Role, req.Level, techs, req.Type, req.Amount),
		Finalized:  true,
		CoverImage: c.cover(),
	})
	if err != nil {
		return storage.Interview{}, fmt.Errorf("create interview: %w", err)
	}

	c.logger.Info("interview created", "interview_id", iv.ID, "user_id", userID, "questions", len(iv.Questions))
	return iv, nil
}

func (c *Creator) cover() string {
	if len(Covers) == 0 {
		return "/covers/adobe.png"
	}
	return Covers[c.pick(len(Covers))]
}

func validate(userID string, req Request) error {
	var missing []string
	if strings.TrimSpace(userID) == "" {
		missing = append(missing, "user")
	}
	if strings.TrimSpace(req.Role) == "" {
		missing = append(missing, "role")
	}
	if strings.TrimSpace(req.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(req.Level) == "" {
		missing = append(missing, "level")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if req.Amount < 1 || req.Amount > MaxQuestions {
		return fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidRequest, MaxQuestions)
	}
	return nil
}

// SplitTechstack splits a comma-separated list, dropping blank entries.
func SplitTechstack(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Questions renders the question templates and returns the first amount.
func Questions(role, level string, techs []string, interviewType string, amount int) []string {
	first := func(fallback string) string {
		if len(techs) > 0 {
			return techs[0]
		}
		return fallback
	}
	second := first("your skills")
	if len(techs) > 1 {
		second = techs[1]
	}
	all := "the relevant"
	if len(techs) > 0 {
		all = strings.Join(techs, ", ")
	}

	questions := []string{
		fmt.Sprintf("Tell me about your experience with %s.", first("the relevant technology")),
		fmt.Sprintf("How would you approach a complex %s challenge in a %s position?", interviewType, role),
		fmt.Sprintf("Describe a project where you used %s at a %s level.", second, level),
		fmt.Sprintf("What's your understanding of best practices for %s?", first("modern development")),
		fmt.Sprintf("How do you stay updated with %s technologies?", all),
		fmt.Sprintf("Walk me through how you would debug a production issue in %s.", first("the system")),
		fmt.Sprintf("Describe your experience working in a %s %s capacity.", level, role),
		fmt.Sprintf("How would you mentor junior developers in %s?", first("the tech stack")),
		fmt.Sprintf("What's the most challenging %s problem you've solved recently?", interviewType),
		"How do you balance code quality with delivery timelines?",
	}

	amount = min(max(amount, 0), len(questions))
	return questions[:amount]
}
