package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/sjawhar/mockview/internal/transcribe"
)

var initDeepgram sync.Once

// ErrNotStarted is returned when audio arrives before Start succeeded.
var ErrNotStarted = errors.New("voice agent not started")

type deepgramConn interface {
	Connect() bool
	Write(p []byte) (int, error)
	Stop()
}

type deepgramDialer func(ctx context.Context, cb api.LiveMessageCallback) (deepgramConn, error)

// DeepgramOptions configures server-side transcription of the candidate's audio.
type DeepgramOptions struct {
	APIKey     string
	Model      string
	SampleRate int
	Logger     *slog.Logger
}

// Deepgram is an Agent that transcribes linear16 audio written to it with
// Deepgram live streaming. Everything it hears is attributed to the user.
type Deepgram struct {
	Emitter
	opts   DeepgramOptions
	dial   deepgramDialer
	logger *slog.Logger

	mu     sync.Mutex
	conn   deepgramConn
	buffer utteranceBuffer
}

func NewDeepgram(opts DeepgramOptions) *Deepgram {
	if opts.Model == "" {
		opts.Model = "nova-2"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Deepgram{opts: opts, logger: logger}
	d.dial = d.dialDeepgram
	return d
}

func (d *Deepgram) dialDeepgram(ctx context.Context, cb api.LiveMessageCallback) (deepgramConn, error) {
	initDeepgram.Do(func() {
		client.Init(client.InitLib{LogLevel: client.LogLevelDefault})
	})

	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.opts.Model,
		Language:       "en-US",
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		VadEvents:      true,
		UtteranceEndMs: "1000",
		Encoding:       "linear16",
		SampleRate:     d.opts.SampleRate,
		Channels:       1,
	}

	conn, err := client.NewWSUsingCallback(ctx, d.opts.APIKey, cOptions, tOptions, cb)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *Deepgram) Start(ctx context.Context, _ StartConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return errors.New("deepgram agent already started")
	}

	conn, err := d.dial(ctx, deepgramCallback{agent: d})
	if err != nil {
		return fmt.Errorf("create deepgram client: %w", err)
	}
	if ok := conn.Connect(); !ok {
		return errors.New("deepgram connect failed")
	}
	d.conn = conn
	return nil
}

func (d *Deepgram) Stop() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.Stop()
	d.flush()
	d.Emit(Event{Type: EventCallEnd})
	return nil
}

// Write forwards raw audio to Deepgram.
func (d *Deepgram) Write(p []byte) (int, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	if conn == nil {
		return 0, ErrNotStarted
	}
	return conn.Write(p)
}

func (d *Deepgram) handleMessage(mr *api.MessageResponse) {
	if len(mr.Channel.Alternatives) == 0 {
		return
	}
	alt := mr.Channel.Alternatives[0]
	sentence := strings.TrimSpace(alt.Transcript)
	if sentence == "" {
		return
	}

	if !mr.IsFinal {
		d.Emit(Event{Type: EventMessage, Message: &Message{
			Type:           MessageTypeTranscript,
			TranscriptType: TranscriptPartial,
			Role:           string(transcribe.SpeakerUser),
			Transcript:     sentence,
		}})
		return
	}

	words := make([]transcribe.Word, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, transcribe.Word{PunctuatedWord: w.PunctuatedWord, Start: w.Start, End: w.End})
	}
	if len(words) == 0 {
		words = append(words, transcribe.Word{PunctuatedWord: sentence})
	}

	d.mu.Lock()
	d.buffer.Add(words)
	d.mu.Unlock()

	if mr.SpeechFinal {
		d.flush()
	}
}

func (d *Deepgram) flush() {
	d.mu.Lock()
	text := d.buffer.Flush()
	d.mu.Unlock()

	if text == "" {
		return
	}
	d.Emit(Event{Type: EventMessage, Message: &Message{
		Type:           MessageTypeTranscript,
		TranscriptType: TranscriptFinal,
		Role:           string(transcribe.SpeakerUser),
		Transcript:     text,
	}})
}

// deepgramCallback translates SDK callbacks into agent events.
type deepgramCallback struct {
	agent *Deepgram
}

func (c deepgramCallback) Open(*api.OpenResponse) error {
	c.agent.logger.Info("connected to Deepgram")
	c.agent.Emit(Event{Type: EventCallStart})
	return nil
}

func (c deepgramCallback) Message(mr *api.MessageResponse) error {
	c.agent.handleMessage(mr)
	return nil
}

func (c deepgramCallback) Metadata(*api.MetadataResponse) error { return nil }

func (c deepgramCallback) SpeechStarted(*api.SpeechStartedResponse) error {
	c.agent.Emit(Event{Type: EventSpeechStart})
	return nil
}

func (c deepgramCallback) UtteranceEnd(*api.UtteranceEndResponse) error {
	c.agent.flush()
	c.agent.Emit(Event{Type: EventSpeechEnd})
	return nil
}

func (c deepgramCallback) Close(*api.CloseResponse) error {
	c.agent.logger.Info("disconnected from Deepgram")
	c.agent.flush()
	c.agent.Emit(Event{Type: EventCallEnd})
	return nil
}

func (c deepgramCallback) Error(er *api.ErrorResponse) error {
	c.agent.logger.Warn("deepgram error", "code", er.ErrCode, "description", er.Description)
	c.agent.Emit(Event{Type: EventError, Err: fmt.Errorf("deepgram %s: %s", er.ErrCode, er.Description)})
	return nil
}

func (c deepgramCallback) UnhandledEvent([]byte) error { return nil }
