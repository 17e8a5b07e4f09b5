package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/sjawhar/mockview/internal/auth"
	"github.com/sjawhar/mockview/internal/config"
	"github.com/sjawhar/mockview/internal/feedback"
	"github.com/sjawhar/mockview/internal/gdrive"
	"github.com/sjawhar/mockview/internal/interview"
	"github.com/sjawhar/mockview/internal/llm"
	"github.com/sjawhar/mockview/internal/logging"
	"github.com/sjawhar/mockview/internal/resume"
	"github.com/sjawhar/mockview/internal/server"
	"github.com/sjawhar/mockview/internal/storage"
	"github.com/sjawhar/mockview/internal/voice"
)

//go:embed static/*
var staticFiles embed.FS

func runServe(ctx context.Context, configPath string, stderr io.Writer) error {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}
	logger.Info("mockview: starting", "version", Version, "llm_model", cfg.LLMModel)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static assets init failed: %w", err)
	}

	client, breaker, err := newLLMClient(&cfg, logger)
	if err != nil {
		return err
	}

	limiter := server.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)
	defer limiter.Close()

	var newDeepgram func() *voice.Deepgram
	if cfg.DeepgramAPIKey != "" {
		newDeepgram = func() *voice.Deepgram {
			return voice.NewDeepgram(voice.DeepgramOptions{
				APIKey: cfg.DeepgramAPIKey,
				Model:  cfg.DeepgramModel,
				Logger: logger,
			})
		}
	}

	srv, err := server.New(server.Deps{
		Static:         assets,
		Hub:            server.NewHub(logger),
		Auth:           auth.NewHeaderAuthenticator(cfg.AuthHeader),
		Store:          store,
		Generator:      feedback.NewGenerator(client, store, logger, cfg.ParsedLLMTimeout()),
		Interviews:     interview.NewCreator(store, logger),
		Resumes:        resume.NewAnalyzer(client, store, logger, cfg.ParsedLLMTimeout()),
		Limiter:        limiter,
		NewDeepgram:    newDeepgram,
		SilenceTimeout: cfg.ParsedSilenceTimeout(),
		Status: server.StatusHooks{
			Warnings: func() []string { return warnings },
			LLMState: func() string {
				if breaker == nil {
					return "disabled"
				}
				return breaker.State()
			},
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("build http server failed: %w", err)
	}

	if cfg.GDriveFolderID != "" {
		uploader, err := gdrive.NewUploader(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			logger.Warn("gdrive backup disabled", "error", err)
		} else {
			backup := gdrive.NewBackup(store, uploader, "", logger)
			go backup.Run(ctx, cfg.ParsedBackupInterval())
		}
	}

	if err := srv.Serve(ctx, cfg.ListenAddr); err != nil {
		return err
	}
	logger.Info("mockview: stopped")
	return nil
}

// newLLMClient returns a nil client when no API key is configured; feedback
// and resume analysis then report themselves as unavailable.
func newLLMClient(cfg *config.Config, logger *slog.Logger) (llm.Client, *llm.Breaker, error) {
	if cfg.LLMAPIKey == "" {
		return nil, nil, nil
	}

	provider, model, err := llm.ParseModel(cfg.LLMModel)
	if err != nil {
		return nil, nil, err
	}

	opts := []llm.Option{llm.WithHeaders(cfg.LLMHeaders())}
	if cfg.LLMBaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLMBaseURL))
	}
	client, err := llm.NewClient(provider, cfg.LLMAPIKey, model, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("llm client init failed: %w", err)
	}

	breaker := llm.NewBreaker(client, llm.BreakerSettings{
		Name:                provider,
		ConsecutiveFailures: uint32(cfg.BreakerFailures),
		Cooldown:            cfg.ParsedBreakerCooldown(),
		Logger:              logger,
	})
	return breaker, breaker, nil
}
