package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sjawhar/mockview/internal/feedback"
	"github.com/sjawhar/mockview/internal/metrics"
	"github.com/sjawhar/mockview/internal/transcribe"
	"github.com/sjawhar/mockview/internal/voice"
)

type Generator interface {
	Generate(ctx context.Context, req feedback.Request) (string, error)
}

// Notifier receives call progress for delivery to the user's clients.
type Notifier interface {
	CallStatusChanged(userID, interviewID string, status Status)
	TranscriptAppended(userID, interviewID string, turn transcribe.Turn)
	SpeakingChanged(userID, interviewID string, speaking bool)
	CallError(userID, interviewID, message string)
	CallFinished(userID, interviewID, redirect string)
	FeedbackReady(userID, interviewID, feedbackID, redirect string)
	FeedbackFailed(userID, interviewID, message, redirect string)
}

// Options describe one call attempt.
type Options struct {
	Mode        voice.Mode
	InterviewID string
	UserID      string
	UserName    string
	Questions   []string
	// FeedbackID, when set, makes the generated feedback overwrite that record.
	FeedbackID string
}

func InterviewsPath() string { return "/interviews" }

func FeedbackPath(interviewID string) string {
	return "/interviews/" + interviewID + "/feedback"
}

// Controller binds one voice agent to successive call attempts and runs
// feedback generation when an interview call finishes.
type Controller struct {
	agent     voice.Agent
	generator Generator
	notifier  Notifier
	logger    *slog.Logger
	detector  *Detector

	mu          sync.Mutex
	call        *Call
	opts        Options
	genCtx      context.Context
	unsubscribe func()

	wg sync.WaitGroup
}

// NewController subscribes to agent. A nil detector disables idle hang-up.
func NewController(agent voice.Agent, generator Generator, notifier Notifier, detector *Detector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		agent:     agent,
		generator: generator,
		notifier:  notifier,
		logger:    logger,
		detector:  detector,
		call:      NewCall(),
		genCtx:    context.Background(),
	}
	if agent != nil {
		c.unsubscribe = agent.Subscribe(c.handle)
	}
	if detector != nil {
		detector.OnIdle(func() {
			_, opts := c.current()
			c.logger.Info("ending idle call", "interview_id", opts.InterviewID)
			if err := c.EndCall(); err != nil && !errors.Is(err, ErrInvalidTransition) {
				c.logger.Warn("idle hang-up failed", "error", err)
			}
		})
	}
	return c
}

// StartCall begins a new attempt. The transcript and generation latch of any
// previous attempt are discarded.
func (c *Controller) StartCall(ctx context.Context, opts Options) error {
	if c.agent == nil {
		return ErrNoAgent
	}
	if opts.Mode == "" {
		opts.Mode = voice.ModeInterview
	}

	c.mu.Lock()
	next, err := Transition(c.call.Status(), TriggerStart)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	call := NewCall()
	call.status = next
	c.call = call
	c.opts = opts
	c.genCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	c.statusChanged(opts, next)

	err = c.agent.Start(ctx, voice.StartConfig{
		Mode:        opts.Mode,
		InterviewID: opts.InterviewID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		Questions:   opts.Questions,
	})
	if err != nil {
		if status, applyErr := call.Apply(TriggerStartFailed); applyErr == nil {
			c.statusChanged(opts, status)
		}
		return fmt.Errorf("start voice agent: %w", err)
	}
	return nil
}

// EndCall hangs up the current call. The agent is stopped while the call is
// still live so segments it flushes on stop reach the transcript.
func (c *Controller) EndCall() error {
	call, opts := c.current()

	if _, err := Transition(call.Status(), TriggerHangUp); err != nil {
		return err
	}
	if c.detector != nil {
		c.detector.Stop()
	}

	if err := c.agent.Stop(); err != nil {
		c.logger.Warn("stop voice agent failed", "interview_id", opts.InterviewID, "error", err)
	}

	// Stop may already have finished the call through a call-end event.
	if status, err := call.Apply(TriggerHangUp); err == nil {
		c.statusChanged(opts, status)
	} else if call.Status() != StatusFinished {
		return err
	}
	c.onFinished(call, opts)
	return nil
}

func (c *Controller) Status() Status {
	call, _ := c.current()
	return call.Status()
}

func (c *Controller) Transcript() []transcribe.Turn {
	call, _ := c.current()
	return call.Transcript()
}

// Close detaches from the agent and hangs up a live call. Generation already
// in flight keeps running; use Wait to block on it.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.detector != nil {
		c.detector.Stop()
	}
	if status := c.Status(); status == StatusConnecting || status == StatusActive {
		if err := c.agent.Stop(); err != nil {
			c.logger.Warn("stop voice agent failed", "error", err)
		}
	}
}

// Wait blocks until background feedback generations have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) current() (*Call, Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call, c.opts
}

func (c *Controller) handle(ev voice.Event) {
	call, opts := c.current()

	switch ev.Type {
	case voice.EventCallStart:
		c.apply(call, opts, TriggerConnected)
	case voice.EventCallEnd:
		if c.apply(call, opts, TriggerEnded) {
			if c.detector != nil {
				c.detector.Stop()
			}
			c.onFinished(call, opts)
		}
	case voice.EventSpeechStart:
		if c.detector != nil {
			c.detector.OnSpeech()
		}
		c.notifier.SpeakingChanged(opts.UserID, opts.InterviewID, true)
	case voice.EventSpeechEnd:
		if c.detector != nil && call.Status() == StatusActive {
			c.detector.OnSpeechEnd()
		}
		c.notifier.SpeakingChanged(opts.UserID, opts.InterviewID, false)
	case voice.EventMessage:
		if ev.Message == nil || !ev.Message.IsFinalTranscript() {
			return
		}
		speaker, err := transcribe.ParseSpeaker(ev.Message.Role)
		if err != nil {
			c.logger.Warn("dropping transcript segment", "interview_id", opts.InterviewID, "error", err)
			return
		}
		if call.OnFinalTranscriptSegment(speaker, ev.Message.Transcript) {
			c.notifier.TranscriptAppended(opts.UserID, opts.InterviewID, transcribe.Turn{Role: speaker, Content: ev.Message.Transcript})
		}
	case voice.EventError:
		msg := "voice agent error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		c.logger.Warn("voice agent error", "interview_id", opts.InterviewID, "error", msg)
		c.notifier.CallError(opts.UserID, opts.InterviewID, msg)
	}
}

// apply reports whether the trigger was accepted.
func (c *Controller) apply(call *Call, opts Options, t Trigger) bool {
	before := call.Status()
	status, err := call.Apply(t)
	if err != nil {
		c.logger.Debug("ignoring call event", "interview_id", opts.InterviewID, "error", err)
		return false
	}
	if status != before {
		c.statusChanged(opts, status)
	}
	return true
}

func (c *Controller) statusChanged(opts Options, status Status) {
	metrics.CallTransitions.WithLabelValues(string(status)).Inc()
	c.notifier.CallStatusChanged(opts.UserID, opts.InterviewID, status)
}

func (c *Controller) onFinished(call *Call, opts Options) {
	if !call.TryStartGeneration() {
		return
	}

	if opts.Mode == voice.ModeGenerate {
		call.FinishGeneration()
		c.notifier.CallFinished(opts.UserID, opts.InterviewID, InterviewsPath())
		return
	}

	turns := call.Transcript()
	if len(turns) == 0 {
		call.FinishGeneration()
		err := &feedback.Error{Kind: feedback.ErrEmptyTranscript, Message: "No interview transcript available"}
		c.logger.Warn("skipping feedback generation", "interview_id", opts.InterviewID, "user_id", opts.UserID, "error", err)
		c.notifier.FeedbackFailed(opts.UserID, opts.InterviewID, feedback.UserMessage(err), InterviewsPath())
		return
	}

	c.mu.Lock()
	ctx := c.genCtx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer call.FinishGeneration()

		id, err := c.generator.Generate(ctx, feedback.Request{
			InterviewID: opts.InterviewID,
			UserID:      opts.UserID,
			Transcript:  turns,
			FeedbackID:  opts.FeedbackID,
		})
		if err != nil {
			c.notifier.FeedbackFailed(opts.UserID, opts.InterviewID, feedback.UserMessage(err), InterviewsPath())
			return
		}
		c.notifier.FeedbackReady(opts.UserID, opts.InterviewID, id, FeedbackPath(opts.InterviewID))
	}()
}
