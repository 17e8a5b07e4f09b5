package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjawhar/mockview/internal/auth"
	"github.com/sjawhar/mockview/internal/session"
	"github.com/sjawhar/mockview/internal/voice"
)

// Deps are the collaborators the HTTP layer needs. Generator, Interviews
// and Resumes are required; NewDeepgram and Limiter are optional.
type Deps struct {
	Static     fs.FS
	Hub        *Hub
	Auth       auth.Authenticator
	Store      Store
	Generator  session.Generator
	Interviews InterviewCreator
	Resumes    ResumeAnalyzer
	Limiter    *RateLimiter
	// NewDeepgram builds a server-side transcription agent; nil disables it.
	NewDeepgram    func() *voice.Deepgram
	SilenceTimeout time.Duration
	Status         StatusHooks
	Logger         *slog.Logger
}

type StatusHooks struct {
	Warnings func() []string
	LLMState func() string
}

type Server struct {
	mux         *http.ServeMux
	hub         *Hub
	auth        auth.Authenticator
	store       Store
	generator   session.Generator
	interviews  InterviewCreator
	resumes     ResumeAnalyzer
	limiter     *RateLimiter
	newDeepgram func() *voice.Deepgram
	silence     time.Duration
	status      StatusHooks
	logger      *slog.Logger

	// calls tracks open call sockets and their background generations.
	calls sync.WaitGroup
}

func New(d Deps) (*Server, error) {
	switch {
	case d.Static == nil:
		return nil, errors.New("server: static filesystem is required")
	case d.Store == nil:
		return nil, errors.New("server: store is required")
	case d.Generator == nil:
		return nil, errors.New("server: feedback generator is required")
	case d.Interviews == nil:
		return nil, errors.New("server: interview creator is required")
	case d.Resumes == nil:
		return nil, errors.New("server: resume analyzer is required")
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := d.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	authenticator := d.Auth
	if authenticator == nil {
		authenticator = auth.NewHeaderAuthenticator("")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		hub:         hub,
		auth:        authenticator,
		store:       d.Store,
		generator:   d.Generator,
		interviews:  d.Interviews,
		resumes:     d.Resumes,
		limiter:     d.Limiter,
		newDeepgram: d.NewDeepgram,
		silence:     d.SilenceTimeout,
		status:      d.Status,
		logger:      logger,
	}

	s.registerWSRoutes()
	s.registerAPIRoutes()
	s.mux.Handle("GET /metrics", promhttp.Handler())

	fileServer := http.FileServer(http.FS(d.Static))
	s.mux.HandleFunc("/", serveSPA(fileServer))

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then drains requests and
// waits for in-flight feedback generations.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web UI listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err)
	}
	return s.Wait(shutdownCtx)
}

// Wait blocks until every call socket has closed and its feedback
// generation has finished, or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.Authenticate(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)), id)
	}
}

func serveSPA(fileServer http.Handler) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws" {
			http.NotFound(w, r)
			return
		}

		cleanPath := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if cleanPath == "." || cleanPath == "" {
			r.URL.Path = "/"
		} else if !strings.Contains(cleanPath, ".") {
			r.URL.Path = "/index.html"
		} else {
			r.URL.Path = "/" + cleanPath
		}

		fileServer.ServeHTTP(w, r)
	}
}
