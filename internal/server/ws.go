package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjawhar/mockview/internal/auth"
	"github.com/sjawhar/mockview/internal/session"
	"github.com/sjawhar/mockview/internal/voice"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	agentRelay    = "relay"
	agentDeepgram = "deepgram"
)

// callFrame is a client control message on the call socket. Frames without
// an action are relayed voice events.
type callFrame struct {
	Action string `json:"action"`
}

// socket serialises writes to one websocket connection.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socket) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *socket) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, payload)
}

func (s *Server) registerWSRoutes() {
	s.mux.HandleFunc("GET /ws", s.authed(s.handleEvents))
	s.mux.HandleFunc("GET /api/interviews/{id}/call", s.authed(s.handleCall))
	s.mux.HandleFunc("GET /api/call", s.authed(s.handleCall))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	ws := &socket{conn: conn}

	_ = ws.writeJSON(ConnectionEvent{
		Event:     newEvent("connection", time.Now().UTC()),
		Connected: true,
	})

	ch := s.hub.Subscribe(id.UserID)
	defer s.hub.Unsubscribe(id.UserID, ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			if err := ws.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// handleCall runs one voice call over a websocket. The socket carries client
// actions, relayed voice events or raw audio in, and this call's events out.
// Events are also published to the hub for the user's other sockets.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := r.URL.Query()
	mode, ok := voice.ParseMode(q.Get("mode"))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	kind := strings.TrimSpace(q.Get("agent"))
	if kind == "" {
		kind = agentRelay
	}
	if kind != agentRelay && kind != agentDeepgram {
		writeJSONError(w, http.StatusBadRequest, "invalid agent")
		return
	}
	if kind == agentDeepgram && s.newDeepgram == nil {
		writeJSONError(w, http.StatusBadRequest, "deepgram agent not configured")
		return
	}

	opts := session.Options{
		Mode:       mode,
		UserID:     id.UserID,
		UserName:   id.Name,
		FeedbackID: strings.TrimSpace(q.Get("feedbackId")),
	}
	if mode == voice.ModeInterview {
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
		opts.InterviewID = iv.ID
		opts.Questions = iv.Questions
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	ws := &socket{conn: conn}

	var (
		agent voice.Agent
		relay *voice.Relay
		dg    *voice.Deepgram
	)
	switch kind {
	case agentDeepgram:
		dg = s.newDeepgram()
		agent = dg
	default:
		relay = voice.NewRelay(func(f voice.Frame) error { return ws.writeJSON(f) })
		agent = relay
	}

	var detector *session.Detector
	if s.silence > 0 {
		detector = session.NewDetector(s.silence)
	}
	events := s.callNotifier(ws)
	ctrl := session.NewController(agent, s.generator, events, detector, s.logger)

	s.calls.Add(1)
	defer func() {
		ctrl.Close()
		go func() {
			ctrl.Wait()
			s.calls.Done()
		}()
	}()

	logger := s.logger.With("interview_id", opts.InterviewID, "user_id", id.UserID, "agent", kind)
	logger.Info("call socket opened", "mode", mode)
	defer logger.Info("call socket closed")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if dg == nil {
				continue
			}
			if _, err := dg.Write(data); err != nil && !errors.Is(err, voice.ErrNotStarted) {
				logger.Warn("forward audio failed", "error", err)
			}
		case websocket.TextMessage:
			var frame callFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				logger.Debug("ignoring malformed frame", "error", err)
				continue
			}
			switch frame.Action {
			case "start":
				if err := ctrl.StartCall(r.Context(), opts); err != nil {
					logger.Warn("start call failed", "error", err)
					events.CallError(id.UserID, opts.InterviewID, "Failed to start call")
				}
			case "stop":
				if err := ctrl.EndCall(); err != nil && !errors.Is(err, session.ErrInvalidTransition) {
					logger.Warn("end call failed", "error", err)
				}
			case "":
				if relay == nil {
					continue
				}
				if err := relay.HandleFrame(data); err != nil {
					logger.Debug("ignoring relay frame", "error", err)
				}
			default:
				logger.Debug("ignoring unknown action", "action", frame.Action)
			}
		}
	}
}

// callNotifier publishes a call's events to the hub and writes them to the
// call's own socket, so concurrent calls of one user never see each other.
func (s *Server) callNotifier(ws *socket) notifier {
	return notifier{publish: func(userID string, event any) {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("event marshal failed", "error", err)
			return
		}
		s.hub.Publish(userID, payload)
		_ = ws.write(websocket.TextMessage, payload)
	}}
}
