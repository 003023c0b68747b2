package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/avirajsharma-ops/sameer/internal/session"
	"github.com/avirajsharma-ops/sameer/pkg/audio"
	"github.com/avirajsharma-ops/sameer/pkg/memory"
	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
)

// Handler upgrades client connections to WebSocket voice sessions.
type Handler struct {
	registry  *session.Registry
	stt       stt.Provider // nil when client-side transcription only
	profiles  memory.ProfileStore
	authToken string
	language  string
	log       *slog.Logger
}

// NewHandler builds a connection handler. An empty authToken disables
// authentication; a nil sttProvider leaves transcription to the client.
func NewHandler(registry *session.Registry, sttProvider stt.Provider, profiles memory.ProfileStore, authToken, language string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		registry:  registry,
		stt:       sttProvider,
		profiles:  profiles,
		authToken: authToken,
		language:  language,
		log:       log,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !h.authenticate(r) {
		h.log.Warn("authentication failed", "remote", r.RemoteAddr)
		_ = ws.Close(websocket.StatusCode(closeCodeAuthFailed), "authentication failed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := newWSSink(ctx, ws, h.log)
	defer sink.close()

	sess := h.registry.Create(ctx, userID, sink)
	sink.setSessionID(sess.ID)
	defer h.registry.Remove(sess.ID)

	sink.send(event{Type: evtConnected, SessionID: sess.ID, Mode: string(sess.Mode())})

	var tr *transcriber
	if h.stt != nil {
		tr = newTranscriber(h.stt, stt.StreamConfig{
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
			Language:   h.language,
		}, sess.ID, h.log, sess.HandleTranscript)
		go tr.Run(ctx)
		defer tr.Stop()
	}

	dec, err := audio.NewDecoder()
	if err != nil {
		h.log.Error("opus decoder init failed", "session", sess.ID, "error", err)
		dec = nil
	}

	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.log.Debug("websocket close failed", "session", sess.ID, "error", closeErr)
		}
	}()

	h.readLoop(ctx, ws, sess, sink, tr, dec)
	h.log.Info("connection closed", "session", sess.ID, "user", userID)
}

// authenticate checks the shared token on the query string or the
// Authorization header.
func (h *Handler) authenticate(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return token == h.authToken
}

// readLoop consumes inbound frames until the connection dies: binary frames
// are Opus audio for the transcription stream, text frames are JSON
// commands.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, sink *wsSink, tr *transcriber, dec *audio.Decoder) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug("websocket closed by client", "session", sess.ID)
			} else if ctx.Err() == nil {
				h.log.Warn("websocket read error", "session", sess.ID, "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if tr == nil || dec == nil {
				continue
			}
			pcm, err := dec.Decode(data)
			if err != nil {
				h.log.Debug("opus decode failed", "session", sess.ID, "error", err)
				continue
			}
			tr.SendAudio(pcm)

		case websocket.MessageText:
			h.handleCommand(sess, sink, data)
		}
	}
}

// handleCommand dispatches one inbound JSON command. A malformed or unknown
// command gets an error event; the session survives.
func (h *Handler) handleCommand(sess *session.Session, sink *wsSink, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		sink.SendError("malformed command")
		return
	}

	switch cmd.Type {
	case cmdPing:
		sink.send(event{Type: evtPong})

	case cmdTranscript:
		// Client-side transcription: a final fragment also marks the end
		// of the utterance, since the client finalises on detected pause.
		sess.HandleTranscript(stt.Event{
			Kind:    stt.EventText,
			Text:    cmd.Text,
			IsFinal: cmd.IsFinal,
		})
		if cmd.IsFinal {
			sess.HandleTranscript(stt.Event{Kind: stt.EventUtteranceEnd})
		}

	case cmdUserSpeaking:
		sess.UserSpeaking()

	case cmdSpeak:
		sess.Speak(cmd.Text)

	case cmdAsk:
		sess.Ask(cmd.Text)

	case cmdPause:
		sess.Pause()

	case cmdResume:
		sess.Resume()

	case cmdStartConversation:
		sess.StartConversation(cmd.Text)

	case cmdEndConversation:
		sess.EndConversation()

	case cmdAudioPlaying:
		sess.AudioPlaying(time.Duration(cmd.DurationMs) * time.Millisecond)

	case cmdAudioEnded:
		sess.AudioEnded()

	case cmdGetMode:
		sink.send(event{Type: evtModeChange, Mode: string(sess.Mode())})

	case cmdGetQuestion:
		if !sess.AskPending() {
			sink.SendError("no pending question")
		}

	case cmdGetProfile:
		go h.sendProfile(sess, sink)

	default:
		sink.SendError("unknown command: " + cmd.Type)
	}
}

// sendProfile answers a get_profile command from the profile store.
func (h *Handler) sendProfile(sess *session.Session, sink *wsSink) {
	if h.profiles == nil {
		sink.send(event{Type: evtProfile})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	facts, err := h.profiles.Facts(ctx, sess.UserID)
	if err != nil {
		h.log.Warn("profile lookup failed", "session", sess.ID, "error", err)
		sink.SendError("profile unavailable")
		return
	}

	out := make([]profileFact, 0, len(facts))
	for _, f := range facts {
		out = append(out, profileFact{
			Category: f.Category,
			Text:     f.Text,
			SavedAt:  f.CreatedAt,
		})
	}
	sink.send(event{Type: evtProfile, Facts: out})
}
