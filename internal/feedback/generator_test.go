package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/sjawhar/mockview/internal/llm"
	"github.com/sjawhar/mockview/internal/metrics"
	"github.com/sjawhar/mockview/internal/transcribe"
)

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	messages []llm.Message
	json     bool
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, opts ...llm.CompleteOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = messages
	f.json = len(opts) > 0
	return f.response, f.err
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]Record
	nextID    int
	inserts   int
	updates   int
	findErr   error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}}
}

func (s *fakeStore) FindFeedback(_ context.Context, interviewID, userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return Record{}, s.findErr
	}
	for _, r := range s.records {
		if r.InterviewID == interviewID && r.UserID == userID {
			return r, nil
		}
	}
	return Record{}, sql.ErrNoRows
}

func (s *fakeStore) InsertFeedback(_ context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.nextID++
	rec.ID = fmt.Sprintf("fb-%d", s.nextID)
	s.records[rec.ID] = rec
	return rec.ID, nil
}

func (s *fakeStore) UpdateFeedback(_ context.Context, id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if cur, ok := s.records[id]; !ok || cur.InterviewID != rec.InterviewID || cur.UserID != rec.UserID {
		return sql.ErrNoRows
	}
	rec.ID = id
	s.records[id] = rec
	return nil
}

func sampleAssessment() Assessment {
	return Assessment{
		TotalScore: 72,
		CategoryScores: []CategoryScore{
			{Name: "Communication Skills", Score: 80, Comment: "Clear answers."},
			{Name: "Technical Knowledge", Score: 70, Comment: "Solid basics."},
			{Name: "Problem-Solving", Score: 65, Comment: "Needed hints."},
			{Name: "Cultural & Role Fit", Score: 75, Comment: "Good fit."},
			{Name: "Confidence & Clarity", Score: 70, Comment: "Steady."},
		},
		Strengths:           []string{"communication"},
		AreasForImprovement: []string{"system design depth"},
		FinalAssessment:     "Promising candidate.",
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func sampleTranscript() []transcribe.Turn {
	return []transcribe.Turn{
		{Role: transcribe.SpeakerAssistant, Content: "Why Go?"},
		{Role: transcribe.SpeakerUser, Content: "Because of its concurrency model."},
	}
}

func TestGenerateCreatesRecord(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	store := newFakeStore()
	gen := NewGenerator(client, store, nil, 0)
	before := testutil.ToFloat64(metrics.FeedbackGenerations.WithLabelValues("created"))

	id, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.NoError(t, err)
	require.Equal(t, "fb-1", id)

	rec := store.records[id]
	require.Equal(t, "int-1", rec.InterviewID)
	require.Equal(t, "user-1", rec.UserID)
	require.Equal(t, sampleAssessment(), rec.Assessment)
	require.Equal(t, 1, client.calls)
	require.True(t, client.json, "expected JSON response mode")
	require.Equal(t, before+1, testutil.ToFloat64(metrics.FeedbackGenerations.WithLabelValues("created")))
}

func TestGeneratePromptContainsTranscriptAndCategories(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	gen := NewGenerator(client, newFakeStore(), nil, 0)

	_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.NoError(t, err)

	require.Len(t, client.messages, 2)
	require.Equal(t, "system", client.messages[0].Role)
	require.Equal(t, systemPrompt, client.messages[0].Content)
	user := client.messages[1].Content
	require.Contains(t, user, "- assistant: Why Go?\n- user: Because of its concurrency model.\n")
	for _, name := range Categories {
		require.Contains(t, user, `"`+name+`"`)
	}
}

func TestGenerateReturnsExistingWithoutCallingModel(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	store := newFakeStore()
	store.records["fb-existing"] = Record{ID: "fb-existing", InterviewID: "int-1", UserID: "user-1"}
	gen := NewGenerator(client, store, nil, 0)

	id, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.NoError(t, err)
	require.Equal(t, "fb-existing", id)
	require.Zero(t, client.calls)
	require.Zero(t, store.inserts)
}

func TestGenerateOverwritesSuppliedFeedbackID(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	store := newFakeStore()
	store.records["fb-existing"] = Record{ID: "fb-existing", InterviewID: "int-1", UserID: "user-1", Assessment: Assessment{TotalScore: 10}}
	gen := NewGenerator(client, store, nil, 0)

	id, err := gen.Generate(context.Background(), Request{
		InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript(), FeedbackID: "fb-existing",
	})
	require.NoError(t, err)
	require.Equal(t, "fb-existing", id)
	require.Equal(t, 1, client.calls)
	require.Equal(t, 1, store.updates)
	require.Zero(t, store.inserts)
	require.Equal(t, 72, store.records["fb-existing"].TotalScore)
}

func TestGenerateUpdateMissingRecordIsPersistenceError(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	gen := NewGenerator(client, newFakeStore(), nil, 0)

	_, err := gen.Generate(context.Background(), Request{
		InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript(), FeedbackID: "missing",
	})
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGenerateRetakeOfAnotherInterviewFails(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	store := newFakeStore()
	store.records["fb-a"] = Record{ID: "fb-a", InterviewID: "int-a", UserID: "user-1", Assessment: Assessment{TotalScore: 10}}
	gen := NewGenerator(client, store, nil, 0)

	_, err := gen.Generate(context.Background(), Request{
		InterviewID: "int-b", UserID: "user-1", Transcript: sampleTranscript(), FeedbackID: "fb-a",
	})
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, 10, store.records["fb-a"].TotalScore)
}

func TestGenerateValidation(t *testing.T) {
	client := &fakeLLM{}
	store := newFakeStore()
	gen := NewGenerator(client, store, nil, 0)

	for _, req := range []Request{
		{UserID: "user-1", Transcript: sampleTranscript()},
		{InterviewID: "int-1", Transcript: sampleTranscript()},
		{InterviewID: "  ", UserID: "user-1", Transcript: sampleTranscript()},
	} {
		_, err := gen.Generate(context.Background(), req)
		require.ErrorIs(t, err, ErrValidation)
		require.Equal(t, "Missing required fields", UserMessage(err))
	}
	require.Zero(t, client.calls)
	require.Zero(t, store.inserts)
}

func TestGenerateEmptyTranscript(t *testing.T) {
	client := &fakeLLM{response: mustJSON(t, sampleAssessment())}
	store := newFakeStore()
	store.findErr = errors.New("store must not be read")
	gen := NewGenerator(client, store, nil, 0)

	_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1"})
	require.ErrorIs(t, err, ErrEmptyTranscript)
	require.Zero(t, client.calls)
	require.Zero(t, store.inserts)
}

func TestGenerateUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    Kind
		message string
	}{
		{
			name:    "quota",
			err:     fmt.Errorf("openai completion: %w", &llm.StatusError{Provider: "openai", StatusCode: 429, Err: errors.New("quota")}),
			want:    ErrUpstreamQuota,
			message: "Quota exceeded on model provider.",
		},
		{
			name:    "auth",
			err:     &llm.StatusError{Provider: "openai", StatusCode: 401, Err: errors.New("bad key")},
			want:    ErrUpstreamAuth,
			message: "Invalid model provider API key",
		},
		{
			name: "empty",
			err:  fmt.Errorf("openai: %w", llm.ErrEmptyResponse),
			want: ErrUpstreamParse,
		},
		{
			name: "breaker open",
			err:  fmt.Errorf("%w: circuit breaker is open", llm.ErrUnavailable),
			want: ErrUpstream,
		},
		{
			name: "network",
			err:  errors.New("connection reset"),
			want: ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			gen := NewGenerator(&fakeLLM{err: tt.err}, store, nil, 0)

			_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.want, KindOf(err))
			if tt.message != "" {
				require.Equal(t, tt.message, UserMessage(err))
			}
			require.Zero(t, store.inserts)
			require.Zero(t, store.updates)
		})
	}
}

func TestGenerateRejectsMalformedOutput(t *testing.T) {
	bad := sampleAssessment()
	bad.CategoryScores = bad.CategoryScores[:4]
	outOfRange := sampleAssessment()
	outOfRange.TotalScore = 140
	unknown := sampleAssessment()
	unknown.CategoryScores[2].Name = "Leadership"
	repeated := sampleAssessment()
	repeated.CategoryScores[4].Name = "communication skills"

	for name, response := range map[string]string{
		"not json":         "I think the candidate did well.",
		"blank":            "   ",
		"missing category": mustJSON(t, bad),
		"score range":      mustJSON(t, outOfRange),
		"unknown category": mustJSON(t, unknown),
		"repeated":         mustJSON(t, repeated),
	} {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			gen := NewGenerator(&fakeLLM{response: response}, store, nil, 0)

			_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
			require.ErrorIs(t, err, ErrUpstreamParse)
			require.Zero(t, store.inserts)
		})
	}
}

func TestGenerateInsertConflictReturnsWinner(t *testing.T) {
	store := &conflictStore{fakeStore: newFakeStore()}
	gen := NewGenerator(&fakeLLM{response: mustJSON(t, sampleAssessment())}, store, nil, 0)

	id, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.NoError(t, err)
	require.Equal(t, "fb-winner", id)
}

// conflictStore simulates a concurrent writer committing between lookup and insert.
type conflictStore struct {
	*fakeStore
}

func (s *conflictStore) InsertFeedback(_ context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = "fb-winner"
	s.records[rec.ID] = rec
	return "", fmt.Errorf("insert feedback: %w", ErrDuplicate)
}

func TestGeneratePersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	gen := NewGenerator(&fakeLLM{response: mustJSON(t, sampleAssessment())}, store, nil, 0)

	_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.ErrorIs(t, err, ErrPersistence)
	require.True(t, strings.Contains(err.Error(), "disk full"))
}

func TestGenerateWithoutClient(t *testing.T) {
	gen := NewGenerator(nil, newFakeStore(), nil, 0)

	_, err := gen.Generate(context.Background(), Request{InterviewID: "int-1", UserID: "user-1", Transcript: sampleTranscript()})
	require.ErrorIs(t, err, ErrUpstream)
}

func TestParseAssessmentNormalizesCategoryNames(t *testing.T) {
	loose := sampleAssessment()
	loose.CategoryScores = []CategoryScore{
		{Name: "confidence and clarity", Score: 70, Comment: "Steady."},
		{Name: "Problem Solving", Score: 65, Comment: "Needed hints."},
		{Name: "Communication skills", Score: 80, Comment: "Clear answers."},
		{Name: "Cultural & Role Fit", Score: 75, Comment: "Good fit."},
		{Name: "technical-knowledge", Score: 70, Comment: "Solid basics."},
	}

	// "and" is a different word from "&".
	_, err := ParseAssessment(mustJSON(t, loose))
	require.ErrorIs(t, err, ErrUpstreamParse)

	loose.CategoryScores[0].Name = "Confidence & clarity"
	got, err := ParseAssessment(mustJSON(t, loose))
	require.NoError(t, err)
	require.Equal(t, sampleAssessment(), got)
}

func TestParseAssessmentStripsCodeFence(t *testing.T) {
	raw := "```json\n" + mustJSON(t, sampleAssessment()) + "\n```"

	got, err := ParseAssessment(raw)
	require.NoError(t, err)
	require.Equal(t, sampleAssessment(), got)
}
