package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/avirajsharma-ops/sameer/internal/session"
)

// outboundBuffer bounds the per-connection outbound queue. A client that
// stops reading loses events rather than stalling the session.
const outboundBuffer = 64

// wsSink delivers session events to the client over the WebSocket. All
// writes funnel through a single writer goroutine so frames never interleave.
type wsSink struct {
	conn *websocket.Conn
	log  *slog.Logger

	mu        sync.Mutex
	sessionID string

	out       chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newWSSink(ctx context.Context, conn *websocket.Conn, log *slog.Logger) *wsSink {
	s := &wsSink{
		conn: conn,
		log:  log,
		out:  make(chan []byte, outboundBuffer),
		done: make(chan struct{}),
	}
	go s.writeLoop(ctx)
	return s
}

// setSessionID attaches the session id once the registry has assigned one.
// Only used to tag log lines.
func (s *wsSink) setSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *wsSink) sid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// writeLoop drains the outbound queue onto the socket until the connection
// context ends or the sink is closed.
func (s *wsSink) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case frame := <-s.out:
			if err := s.conn.Write(ctx, websocket.MessageText, frame); err != nil {
				s.log.Debug("outbound write failed", "session", s.sid(), "error", err)
				return
			}
		}
	}
}

// close stops the writer goroutine. Pending frames are dropped.
func (s *wsSink) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// send marshals ev and queues it, dropping the event when the client has
// fallen too far behind.
func (s *wsSink) send(ev event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("event marshal failed", "session", s.sid(), "type", ev.Type, "error", err)
		return
	}
	select {
	case s.out <- frame:
	default:
		s.log.Warn("outbound queue full, dropping event", "session", s.sid(), "type", ev.Type)
	}
}

func (s *wsSink) SendTranscript(text string, isFinal bool) {
	typ := evtInterim
	if isFinal {
		typ = evtFinal
	}
	s.send(event{Type: typ, Text: text})
}

func (s *wsSink) SendModeChange(mode session.Mode) {
	s.send(event{Type: evtModeChange, Mode: string(mode)})
}

func (s *wsSink) SendQuestion(q session.PendingQuestion) {
	s.send(event{Type: evtAIQuestion, Question: q.Text, Category: q.Category})
}

func (s *wsSink) SendResponse(text string) {
	s.send(event{Type: evtAIResponse, Text: text})
}

func (s *wsSink) SendVoice(audio []byte, playback time.Duration) {
	s.send(event{Type: evtAIVoice, Audio: audio, DurationMs: playback.Milliseconds()})
}

func (s *wsSink) SendError(message string) {
	s.send(event{Type: evtError, Message: message})
}

var _ session.Sink = (*wsSink)(nil)
