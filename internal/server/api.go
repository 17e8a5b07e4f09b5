package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/sjawhar/mockview/internal/auth"
	"github.com/sjawhar/mockview/internal/feedback"
	"github.com/sjawhar/mockview/internal/interview"
	"github.com/sjawhar/mockview/internal/resume"
	"github.com/sjawhar/mockview/internal/storage"
	"github.com/sjawhar/mockview/internal/transcribe"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const maxBodyBytes = 1 << 20

type Store interface {
	GetInterview(ctx context.Context, id string) (storage.Interview, error)
	ListInterviewsByUser(ctx context.Context, userID string) ([]storage.Interview, error)
	ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]storage.Interview, error)
	FindFeedback(ctx context.Context, interviewID, userID string) (feedback.Record, error)
	CreateResume(ctx context.Context, r storage.Resume) (storage.Resume, error)
	GetResume(ctx context.Context, id, userID string) (storage.Resume, error)
	ListResumesByUser(ctx context.Context, userID string) ([]storage.Resume, error)
}

type InterviewCreator interface {
	Create(ctx context.Context, userID string, req interview.Request) (storage.Interview, error)
}

type ResumeAnalyzer interface {
	Analyze(ctx context.Context, resumeID, userID string) (resume.Feedback, error)
}

type createFeedbackRequest struct {
	Transcript []transcribe.Turn `json:"transcript"`
	FeedbackID string            `json:"feedbackId"`
}

type createResumeRequest struct {
	CompanyName    string `json:"companyName"`
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	ResumeText     string `json:"resumeText"`
	FilePath       string `json:"filePath"`
}

type analyzeResumeRequest struct {
	ResumeID string `json:"resumeId"`
}

func (s *Server) registerAPIRoutes() {
	s.mux.HandleFunc("POST /api/interviews", s.authed(s.handleCreateInterview))
	s.mux.HandleFunc("GET /api/interviews", s.authed(s.handleListInterviews))
	s.mux.HandleFunc("GET /api/interviews/latest", s.authed(s.handleLatestInterviews))
	s.mux.HandleFunc("GET /api/interviews/{id}", s.authed(s.handleGetInterview))
	s.mux.HandleFunc("GET /api/interviews/{id}/feedback", s.authed(s.handleGetFeedback))
	s.mux.HandleFunc("POST /api/interviews/{id}/feedback", s.authed(s.limit(s.handleCreateFeedback)))

	s.mux.HandleFunc("POST /api/resumes", s.authed(s.handleCreateResume))
	s.mux.HandleFunc("GET /api/resumes", s.authed(s.handleListResumes))
	s.mux.HandleFunc("GET /api/resumes/{id}", s.authed(s.handleGetResume))
	s.mux.HandleFunc("POST /api/analyze-resume", s.authed(s.limit(s.handleAnalyzeResume)))

	s.mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		var warnings []string
		if s.status.Warnings != nil {
			warnings = s.status.Warnings()
		}
		if warnings == nil {
			warnings = []string{}
		}
		llmState := "unknown"
		if s.status.LLMState != nil {
			llmState = s.status.LLMState()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"llm":      llmState,
			"deepgram": s.newDeepgram != nil,
			"warnings": warnings,
		})
	})
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req interview.Request
	if !decodeBody(w, r, &req) {
		return
	}

	iv, err := s.interviews.Create(r.Context(), id.UserID, req)
	if err != nil {
		if errors.Is(err, interview.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
			return
		}
		s.logger.Error("create interview failed", "user_id", id.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to create interview"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "interview": iv})
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	interviews, err := s.store.ListInterviewsByUser(r.Context(), id.UserID)
	if err != nil {
		s.internalError(w, "list interviews", err)
		return
	}
	writeJSON(w, http.StatusOK, interviews)
}

func (s *Server) handleLatestInterviews(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	interviews, err := s.store.ListLatestInterviews(r.Context(), id.UserID, limit)
	if err != nil {
		s.internalError(w, "list latest interviews", err)
		return
	}
	writeJSON(w, http.StatusOK, interviews)
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	interviewID := r.PathValue("id")
	if !validID(interviewID) {
		writeJSONError(w, http.StatusBadRequest, "invalid interview id")
		return
	}

	iv, err := s.store.GetInterview(r.Context(), interviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "interview not found")
			return
		}
		s.internalError(w, "get interview", err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	interviewID := r.PathValue("id")
	if !validID(interviewID) {
		writeJSONError(w, http.StatusBadRequest, "invalid interview id")
		return
	}

	rec, err := s.store.FindFeedback(r.Context(), interviewID, id.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "feedback not found")
			return
		}
		s.internalError(w, "get feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	interviewID := r.PathValue("id")
	if !validID(interviewID) {
		writeJSONError(w, http.StatusBadRequest, "invalid interview id")
		return
	}

	var req createFeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// The model call is not abandoned when the client goes away.
	ctx := context.WithoutCancel(r.Context())
	feedbackID, err := s.generator.Generate(ctx, feedback.Request{
		InterviewID: interviewID,
		UserID:      id.UserID,
		Transcript:  req.Transcript,
		FeedbackID:  strings.TrimSpace(req.FeedbackID),
	})
	if err != nil {
		writeJSON(w, feedbackStatus(err), map[string]any{"success": false, "error": feedback.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "feedbackId": feedbackID})
}

func feedbackStatus(err error) int {
	switch feedback.KindOf(err) {
	case feedback.ErrValidation, feedback.ErrEmptyTranscript:
		return http.StatusBadRequest
	case feedback.ErrUpstreamQuota:
		return http.StatusTooManyRequests
	case feedback.ErrUpstreamAuth, feedback.ErrUpstreamParse, feedback.ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createResumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		writeJSONError(w, http.StatusBadRequest, "resumeText is required")
		return
	}

	created, err := s.store.CreateResume(r.Context(), storage.Resume{
		UserID:         id.UserID,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		JobTitle:       strings.TrimSpace(req.JobTitle),
		JobDescription: strings.TrimSpace(req.JobDescription),
		ResumeText:     req.ResumeText,
		FilePath:       req.FilePath,
	})
	if err != nil {
		s.internalError(w, "create resume", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	resumes, err := s.store.ListResumesByUser(r.Context(), id.UserID)
	if err != nil {
		s.internalError(w, "list resumes", err)
		return
	}
	writeJSON(w, http.StatusOK, resumes)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	resumeID := r.PathValue("id")
	if !validID(resumeID) {
		writeJSONError(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	res, err := s.store.GetResume(r.Context(), resumeID, id.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Resume not found")
			return
		}
		s.internalError(w, "get resume", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeResume(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req analyzeResumeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fb, err := s.resumes.Analyze(context.WithoutCancel(r.Context()), strings.TrimSpace(req.ResumeID), id.UserID)
	switch {
	case errors.Is(err, resume.ErrMissingID):
		writeJSONError(w, http.StatusBadRequest, "Resume ID is required")
	case errors.Is(err, resume.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Resume not found")
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "Analysis failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "feedback": fb})
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeJSONError(w, http.StatusInternalServerError, op+" failed")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func validID(id string) bool {
	return idPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
