// Package session implements the per-connection voice-session orchestrator:
// the state machine that turns a raw stream of transcript fragments into
// turn-taking dialogue. A session starts in monitoring mode, where speech is
// transcribed and analysed but never answered; a wake phrase switches it to
// conversation mode, where every utterance gets a generated reply and
// silence is timed. Sessions are created by the [Registry] on connect and
// destroyed on disconnect.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/avirajsharma-ops/sameer/internal/observe"
	"github.com/avirajsharma-ops/sameer/internal/wake"
	"github.com/avirajsharma-ops/sameer/pkg/memory"
	"github.com/avirajsharma-ops/sameer/pkg/provider/embeddings"
	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
	"github.com/avirajsharma-ops/sameer/pkg/provider/tts"
)

// Mode is the session's dialogue state.
type Mode string

const (
	// ModeMonitoring is the passive state: speech is transcribed and
	// analysed but no reply is generated.
	ModeMonitoring Mode = "monitoring"

	// ModeConversation is the active state: each utterance receives a
	// generated reply and silence is timed.
	ModeConversation Mode = "conversation"
)

// QuestionOrigin says where a pending question came from.
type QuestionOrigin string

const (
	// OriginProactive marks questions driven by a profile gap.
	OriginProactive QuestionOrigin = "proactive"

	// OriginContextual marks follow-ups to recently overheard speech.
	OriginContextual QuestionOrigin = "contextual"
)

// PendingQuestion is a prepared question awaiting a quiet moment. At most
// one exists per session.
type PendingQuestion struct {
	Text     string
	Category string
	Origin   QuestionOrigin
}

// Sink receives the session's outbound events. The server implements it
// over the client's WebSocket; tests implement it in memory. Methods must
// not call back into the session.
type Sink interface {
	SendTranscript(text string, isFinal bool)
	SendModeChange(mode Mode)
	SendQuestion(q PendingQuestion)
	SendResponse(text string)
	SendVoice(audio []byte, playback time.Duration)
	SendError(message string)
}

// Providers are the external collaborators a session calls out to. Only
// Generator is required; everything else degrades gracefully when nil.
type Providers struct {
	Generator     llm.Generator
	Synthesizer   tts.Synthesizer
	Embedder      embeddings.Provider
	Transcripts   memory.TranscriptStore
	Conversations memory.ConversationStore
	Profiles      memory.ProfileStore
}

// Config carries the tunables shared by all sessions.
type Config struct {
	Detector  *wake.Detector
	Timing    Timing
	Proactive ProactiveConfig
	Metrics   *observe.Metrics
	Logger    *slog.Logger
}

// maxHistory bounds the rolling conversation history passed to the
// generator.
const maxHistory = 20

// nonTrivialPayloadChars: a wake-phrase payload longer than this is treated
// as a real opening line and answered by the generator; anything shorter
// gets a canned greeting.
const nonTrivialPayloadChars = 5

var (
	greetings = []string{
		"Hi! I'm listening.",
		"Hey, I'm here. What's up?",
		"Yes? I'm all ears.",
	}
	signoffs = []string{
		"Okay, I'll be around if you need me.",
		"Alright, catch you later.",
		"I'll let you get back to it. Just call me.",
	}
)

// Session is the per-connection orchestrator. All state mutation happens
// under mu; collaborator calls run on separate goroutines that re-check
// mode and epoch before applying their results.
type Session struct {
	ID     string
	UserID string

	ctx    context.Context
	cancel context.CancelFunc

	wake      *wake.Detector
	timers    *SilenceTimers
	timing    Timing
	proactive ProactiveConfig
	metrics   *observe.Metrics
	log       *slog.Logger
	sink      Sink

	gen         llm.Generator
	synth       tts.Synthesizer
	embedder    embeddings.Provider
	transcripts memory.TranscriptStore
	convos      memory.ConversationStore
	profiles    memory.ProfileStore

	mu            sync.Mutex
	mode          Mode
	epoch         uint64 // bumped on every mode change; stale async results are discarded
	processing    bool
	paused        bool
	closed        bool
	pending       *PendingQuestion
	cooldownUntil time.Time
	lastActivity  time.Time
	acc           Accumulator
	observed      []string
	history       []llm.Message
	convo         memory.Conversation
}

// New creates a session in monitoring mode and starts its proactive
// scheduler when cfg.Proactive.Interval is non-zero. ctx bounds the
// session's collaborator calls; Close cancels it.
func New(ctx context.Context, id, userID string, sink Sink, p Providers, cfg Config) *Session {
	if cfg.Detector == nil {
		cfg.Detector = wake.MustNew(wake.DefaultConfig())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:           id,
		UserID:       userID,
		ctx:          sctx,
		cancel:       cancel,
		wake:         cfg.Detector,
		timers:       NewSilenceTimers(),
		timing:       cfg.Timing,
		proactive:    cfg.Proactive,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		sink:         sink,
		gen:          p.Generator,
		synth:        p.Synthesizer,
		embedder:     p.Embedder,
		transcripts:  p.Transcripts,
		convos:       p.Conversations,
		profiles:     p.Profiles,
		mode:         ModeMonitoring,
		lastActivity: time.Now(),
	}

	if cfg.Proactive.Interval > 0 {
		go s.proactiveLoop(cfg.Proactive.Interval)
	}
	return s
}

// SetTimers replaces the session's timer coordinator. Used by the registry
// so all sessions share one coordinator; must be called before any events
// are handled.
func (s *Session) SetTimers(t *SilenceTimers) {
	s.timers = t
}

// Mode returns the session's current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// HandleTranscript feeds one transcription-stream event into the state
// machine. Events for one session must arrive from a single goroutine, in
// order.
func (s *Session) HandleTranscript(ev stt.Event) {
	switch ev.Kind {
	case stt.EventSpeechStarted:
		s.onSpeechStarted()
	case stt.EventText:
		if ev.IsFinal {
			s.onFinalText(ev.Text, ev.Confidence)
		} else {
			s.onInterimText(ev.Text)
		}
	case stt.EventUtteranceEnd:
		s.onUtteranceEnd()
	case stt.EventError:
		s.metrics.RecordProviderError(s.ctx, "stt")
		s.sink.SendError("transcription interrupted, reconnecting")
	}
}

func (s *Session) onSpeechStarted() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	rearm := s.mode == ModeConversation && !s.paused
	epoch := s.epoch
	s.mu.Unlock()

	if rearm {
		s.armSilence(epoch, s.timing.PlaybackDelay(0))
	}
}

func (s *Session) onInterimText(text string) {
	s.mu.Lock()
	paused := s.paused || s.closed
	s.mu.Unlock()
	if paused || strings.TrimSpace(text) == "" {
		return
	}
	s.sink.SendTranscript(text, false)
}

func (s *Session) onFinalText(text string, confidence float64) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	if s.closed || s.paused {
		s.mu.Unlock()
		return
	}
	s.lastActivity = time.Now()

	switch s.mode {
	case ModeConversation:
		epoch := s.epoch
		if s.processing {
			// A turn is in flight; keep the text for the next flush.
			s.acc.Append(text, confidence)
			s.mu.Unlock()
			s.armSilence(epoch, s.timing.PlaybackDelay(0))
		} else {
			s.processing = true
			s.mu.Unlock()
			s.armSilence(epoch, s.timing.PlaybackDelay(0))
			go s.runTurn(epoch, text)
		}

	default: // ModeMonitoring
		if s.wake.Detect(text) {
			s.mu.Unlock()
			s.metrics.WakeDetections.Add(s.ctx, 1)
			s.log.Info("wake phrase detected", "session", s.ID)
			s.enterConversation("wake", s.wake.ExtractPayload(text))
		} else {
			s.acc.Append(text, confidence)
			s.mu.Unlock()
		}
	}

	s.sink.SendTranscript(text, true)
}

func (s *Session) onUtteranceEnd() {
	s.mu.Lock()
	if s.closed || s.paused {
		s.mu.Unlock()
		return
	}

	if s.mode == ModeConversation {
		// Text buffered while a turn was in flight becomes the next turn.
		if !s.processing {
			if utt, _, ok := s.acc.Flush(); ok {
				s.processing = true
				epoch := s.epoch
				s.mu.Unlock()
				go s.runTurn(epoch, utt)
				return
			}
		}
		s.mu.Unlock()
		return
	}

	// Monitoring: flush the accumulated utterance for analysis, then use
	// the quiet moment to ask a pending question if one is waiting.
	var utterance string
	var confidence float64
	epoch := s.epoch
	if !s.processing {
		if utt, conf, ok := s.acc.Flush(); ok {
			s.processing = true
			utterance = utt
			confidence = conf
		}
	}
	var question *PendingQuestion
	if s.pending != nil && !s.inCooldown() {
		question = s.pending
		s.pending = nil
		s.cooldownUntil = time.Now().Add(s.proactive.Cooldown)
	}
	s.mu.Unlock()

	if utterance != "" {
		go s.dispatchUtterance(epoch, utterance, confidence)
	}
	if question != nil {
		s.deliverQuestion(*question)
	}
}

// enterConversation performs the Monitoring → Conversation transition. A
// session already in conversation stays put. kind records how the
// conversation started ("wake" or "explicit").
func (s *Session) enterConversation(kind, payload string) {
	s.mu.Lock()
	if s.closed || s.mode == ModeConversation {
		s.mu.Unlock()
		return
	}
	s.mode = ModeConversation
	s.epoch++
	epoch := s.epoch
	s.processing = true
	s.pending = nil
	s.history = nil
	s.mu.Unlock()

	s.metrics.RecordModeTransition(s.ctx, string(ModeConversation))
	s.sink.SendModeChange(ModeConversation)

	// Arm immediately so the timer is never unset, whatever the opening
	// turn does.
	s.armSilence(epoch, s.timing.PlaybackDelay(0))

	go s.openConversation(epoch, kind, payload)
}

// openConversation runs the first turn of a conversation: creates the
// conversation record and answers the wake-phrase payload.
func (s *Session) openConversation(epoch uint64, kind, payload string) {
	var convo memory.Conversation
	if s.convos != nil {
		var err error
		convo, err = s.convos.Create(s.ctx, s.UserID, kind)
		if err != nil {
			s.log.Warn("conversation record creation failed", "session", s.ID, "error", err)
			convo = nil
		}
	}

	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		if convo != nil {
			_ = convo.End(context.WithoutCancel(s.ctx), memory.EndInterrupted)
		}
		return
	}
	s.convo = convo
	s.mu.Unlock()

	var reply string
	if len(strings.TrimSpace(payload)) > nonTrivialPayloadChars {
		s.recordMessage(epoch, "user", payload)
		generated, err := s.generate(llm.Request{
			UserID:  s.UserID,
			Input:   payload,
			History: s.historySnapshot(),
		})
		if err != nil {
			s.log.Warn("opening reply generation failed", "session", s.ID, "error", err)
			s.finishTurn(epoch, 0)
			return
		}
		reply = generated
	} else {
		reply = greetings[rand.IntN(len(greetings))]
	}

	s.deliverReply(epoch, reply)
}

// runTurn handles one conversation turn: user text in, generated reply out.
// A generation failure skips the reply but still re-arms the silence timer.
func (s *Session) runTurn(epoch uint64, text string) {
	s.mu.Lock()
	if s.closed || s.epoch != epoch || s.mode != ModeConversation {
		s.mu.Unlock()
		s.log.Debug("discarding turn for stale epoch", "session", s.ID)
		return
	}
	s.mu.Unlock()

	s.recordMessage(epoch, "user", text)

	reply, err := s.generate(llm.Request{
		UserID:  s.UserID,
		Input:   text,
		History: s.historySnapshot(),
	})
	if err != nil {
		s.log.Warn("reply generation failed, skipping turn", "session", s.ID, "error", err)
		s.finishTurn(epoch, 0)
		return
	}

	s.deliverReply(epoch, reply)
}

// deliverReply sends reply text (and voice when synthesis is available) to
// the client, records it, and re-arms the silence timer sized to the reply
// audio. Discarded wholesale if the session left conversation mode while
// the reply was being produced.
func (s *Session) deliverReply(epoch uint64, reply string) {
	s.mu.Lock()
	stale := s.closed || s.epoch != epoch || s.mode != ModeConversation
	s.mu.Unlock()
	if stale {
		s.log.Debug("discarding reply for stale epoch", "session", s.ID)
		return
	}

	s.sink.SendResponse(reply)
	s.recordMessage(epoch, "assistant", reply)

	audio := s.synthesize(reply)
	if len(audio) > 0 {
		s.sink.SendVoice(audio, s.playbackEstimate(len(audio)))
	}
	s.finishTurn(epoch, len(audio))
}

// finishTurn clears the processing flag and re-arms the silence timer for
// the turn's reply audio (zero bytes for a skipped reply).
func (s *Session) finishTurn(epoch uint64, audioBytes int) {
	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.processing = false
	s.mu.Unlock()

	s.armSilence(epoch, s.timing.ReplyDelay(audioBytes))
}

// armSilence arms the session's silence timer; on fire the session drops
// back to monitoring, unless the epoch moved on in the meantime.
func (s *Session) armSilence(epoch uint64, delay time.Duration) {
	s.timers.Arm(s.ID, delay, func() { s.onSilence(epoch) })
}

// onSilence is the silence-timer callback: Conversation → Monitoring with
// reason timeout and a spoken sign-off.
func (s *Session) onSilence(epoch uint64) {
	s.mu.Lock()
	if s.closed || s.epoch != epoch || s.mode != ModeConversation {
		s.mu.Unlock()
		return
	}
	convo := s.exitConversationLocked()
	s.mu.Unlock()

	s.metrics.RecordModeTransition(s.ctx, string(ModeMonitoring))
	s.sink.SendModeChange(ModeMonitoring)

	signoff := signoffs[rand.IntN(len(signoffs))]
	s.sink.SendResponse(signoff)
	if audio := s.synthesize(signoff); len(audio) > 0 {
		s.sink.SendVoice(audio, s.playbackEstimate(len(audio)))
	}

	s.endConversationRecord(convo, memory.EndTimeout)
}

// EndConversation handles the explicit end-conversation command:
// Conversation → Monitoring with reason completed and no sign-off.
func (s *Session) EndConversation() {
	s.mu.Lock()
	if s.closed || s.mode != ModeConversation {
		s.mu.Unlock()
		return
	}
	convo := s.exitConversationLocked()
	s.mu.Unlock()

	s.timers.Cancel(s.ID)
	s.metrics.RecordModeTransition(s.ctx, string(ModeMonitoring))
	s.sink.SendModeChange(ModeMonitoring)
	s.endConversationRecord(convo, memory.EndCompleted)
}

// exitConversationLocked flips the session back to monitoring and detaches
// the conversation record. Caller holds s.mu and ends the returned record
// outside the lock.
func (s *Session) exitConversationLocked() memory.Conversation {
	s.mode = ModeMonitoring
	s.epoch++
	s.processing = false
	s.history = nil
	convo := s.convo
	s.convo = nil
	return convo
}

// StartConversation handles the explicit start-conversation command. An
// empty opener gets the canned greeting treatment.
func (s *Session) StartConversation(opener string) {
	s.enterConversation("explicit", strings.TrimSpace(opener))
}

// UserSpeaking absorbs the client's "still speaking" signal: in
// conversation mode the silence timer restarts with no audio allowance.
func (s *Session) UserSpeaking() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	rearm := !s.closed && !s.paused && s.mode == ModeConversation
	epoch := s.epoch
	s.mu.Unlock()

	if rearm {
		s.armSilence(epoch, s.timing.PlaybackDelay(0))
	}
}

// AudioPlaying extends the silence timer to cover a client-reported
// playback duration.
func (s *Session) AudioPlaying(playback time.Duration) {
	s.mu.Lock()
	rearm := !s.closed && s.mode == ModeConversation
	epoch := s.epoch
	s.mu.Unlock()

	if rearm {
		s.armSilence(epoch, s.timing.PlaybackDelay(playback))
	}
}

// AudioEnded restarts the silence timer after client playback finishes.
func (s *Session) AudioEnded() {
	s.mu.Lock()
	rearm := !s.closed && s.mode == ModeConversation
	epoch := s.epoch
	s.mu.Unlock()

	if rearm {
		s.armSilence(epoch, s.timing.PlaybackDelay(0))
	}
}

// Speak synthesizes text and sends it as voice without touching the state
// machine. Used for client-driven announcements.
func (s *Session) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	go func() {
		if audio := s.synthesize(text); len(audio) > 0 {
			s.sink.SendVoice(audio, s.playbackEstimate(len(audio)))
		}
	}()
}

// Ask answers an explicit one-off question from the client. In conversation
// mode it behaves like a normal turn; in monitoring mode it replies without
// changing mode.
func (s *Session) Ask(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.mode == ModeConversation {
		epoch := s.epoch
		if s.processing {
			// A turn is in flight; the question joins the next flush.
			s.acc.Append(text, 0)
			s.mu.Unlock()
			return
		}
		s.processing = true
		s.mu.Unlock()
		go s.runTurn(epoch, text)
		return
	}
	s.mu.Unlock()

	go func() {
		reply, err := s.generate(llm.Request{UserID: s.UserID, Input: text})
		if err != nil {
			s.log.Warn("ask failed", "session", s.ID, "error", err)
			s.sink.SendError("could not answer right now")
			return
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		s.sink.SendResponse(reply)
		if audio := s.synthesize(reply); len(audio) > 0 {
			s.sink.SendVoice(audio, s.playbackEstimate(len(audio)))
		}
	}()
}

// Pause suspends transcript handling and the proactive scheduler.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume lifts a pause.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// AskPending delivers the pending question immediately, if one exists.
// Delivery clears it and starts the cooldown. Reports whether a question
// was delivered.
func (s *Session) AskPending() bool {
	s.mu.Lock()
	if s.closed || s.pending == nil {
		s.mu.Unlock()
		return false
	}
	q := *s.pending
	s.pending = nil
	s.cooldownUntil = time.Now().Add(s.proactive.Cooldown)
	s.mu.Unlock()

	s.deliverQuestion(q)
	return true
}

// deliverQuestion sends a question to the client, with voice when
// available.
func (s *Session) deliverQuestion(q PendingQuestion) {
	s.metrics.RecordQuestionAsked(s.ctx, string(q.Origin))
	s.sink.SendQuestion(q)
	go func() {
		if audio := s.synthesize(q.Text); len(audio) > 0 {
			s.sink.SendVoice(audio, s.playbackEstimate(len(audio)))
		}
	}()
}

// dispatchUtterance analyses and persists one monitored utterance, then
// tracks it as evidence for the proactive scheduler. Persistence is
// fire-and-forget; a failed save never affects the state machine. epoch is
// the session epoch at dispatch time; when the session has moved on (wake
// transition, teardown) the dispatch only persists and touches no state,
// since the processing flag now belongs to the new epoch's turn.
func (s *Session) dispatchUtterance(epoch uint64, text string, confidence float64) {
	s.metrics.UtterancesDispatched.Add(s.ctx, 1)
	markers := InterestMarkers(text)

	var embedding []float32
	if s.embedder != nil {
		emb, err := s.embedder.Embed(s.ctx, text)
		if err != nil {
			s.metrics.RecordProviderError(s.ctx, "embeddings")
			s.log.Debug("utterance embedding failed", "session", s.ID, "error", err)
		} else {
			embedding = emb
		}
	}

	if s.transcripts != nil {
		err := s.transcripts.SaveUtterance(s.ctx, memory.Utterance{
			UserID:     s.UserID,
			SessionID:  s.ID,
			Text:       text,
			Confidence: confidence,
			Markers:    markers,
			Embedding:  embedding,
			Timestamp:  time.Now(),
		})
		if err != nil {
			s.log.Debug("utterance save failed", "session", s.ID, "error", err)
		}
	}

	if s.profiles != nil {
		if category := factCategory(markers); category != "" {
			s.saveProfileFact(category, text, embedding)
		}
	}

	s.mu.Lock()
	if !s.closed && s.epoch == epoch {
		s.observed = append(s.observed, text)
		s.processing = false
	}
	s.mu.Unlock()
}

// factCategory maps interest markers onto the profile dimension a monitored
// utterance says something about. Empty when the utterance is not worth
// keeping as a fact.
func factCategory(markers []string) string {
	for _, m := range markers {
		switch m {
		case "relationship":
			return "relationships"
		case "first_person":
			return "wellbeing"
		case "temporal":
			return "daily_routine"
		}
	}
	return ""
}

// saveProfileFact records one monitored utterance as a profile observation,
// skipping an exact repeat of the most similar stored fact.
func (s *Session) saveProfileFact(category, text string, embedding []float32) {
	if len(embedding) > 0 {
		similar, err := s.profiles.SimilarFacts(s.ctx, s.UserID, embedding, 1)
		if err != nil {
			s.log.Debug("similar fact lookup failed", "session", s.ID, "error", err)
		} else if len(similar) > 0 && similar[0].Text == text {
			return
		}
	}

	err := s.profiles.SaveFact(s.ctx, memory.Fact{
		UserID:    s.UserID,
		Category:  category,
		Text:      text,
		Embedding: embedding,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.log.Debug("profile fact save failed", "session", s.ID, "error", err)
	}
}

// Close tears the session down: cancels timers and the scheduler, ends an
// active conversation record as interrupted, and flushes any buffered
// transcript. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	convo := s.convo
	s.convo = nil
	utterance, confidence, hasUtterance := s.acc.Flush()
	s.mu.Unlock()

	s.timers.Cancel(s.ID)
	s.cancel()

	// Session context is gone; give the final writes their own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
	defer cancel()

	if convo != nil {
		if err := convo.End(ctx, memory.EndInterrupted); err != nil {
			s.log.Debug("conversation end failed", "session", s.ID, "error", err)
		}
	}
	if hasUtterance && s.transcripts != nil {
		err := s.transcripts.SaveUtterance(ctx, memory.Utterance{
			UserID:     s.UserID,
			SessionID:  s.ID,
			Text:       utterance,
			Confidence: confidence,
			Markers:    InterestMarkers(utterance),
			Timestamp:  time.Now(),
		})
		if err != nil {
			s.log.Debug("final utterance save failed", "session", s.ID, "error", err)
		}
	}
	s.log.Info("session closed", "session", s.ID, "user", s.UserID)
}

// --- helpers ---

func (s *Session) inCooldown() bool {
	return time.Now().Before(s.cooldownUntil)
}

// recordMessage appends a message to the rolling history and the
// conversation record, when one exists.
func (s *Session) recordMessage(epoch uint64, role, text string) {
	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.history = append(s.history, llm.Message{Role: role, Content: text})
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	convo := s.convo
	s.mu.Unlock()

	if convo != nil {
		if err := convo.AddMessage(s.ctx, role, text); err != nil {
			s.log.Debug("conversation message save failed", "session", s.ID, "error", err)
		}
	}
}

func (s *Session) historySnapshot() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// generate calls the generation collaborator with latency and error
// accounting. A missing generator is an error, not a panic; the caller's
// failed-turn path keeps the session alive.
func (s *Session) generate(req llm.Request) (string, error) {
	if s.gen == nil {
		return "", errors.New("session: no generator configured")
	}
	start := time.Now()
	reply, err := s.gen.Generate(s.ctx, req)
	s.metrics.GenerationDuration.Record(s.ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(s.ctx, "llm")
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// synthesize returns reply audio, or nil when synthesis is unavailable or
// failed. A nil result is not an error for the caller; the turn simply has
// no voice.
func (s *Session) synthesize(text string) []byte {
	if s.synth == nil {
		return nil
	}
	start := time.Now()
	audio, err := s.synth.Synthesize(s.ctx, text)
	s.metrics.SynthesisDuration.Record(s.ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(s.ctx, "tts")
		s.log.Warn("synthesis failed", "session", s.ID, "error", err)
		return nil
	}
	return audio
}

// playbackEstimate converts audio byte length into an estimated playback
// duration for the client.
func (s *Session) playbackEstimate(audioBytes int) time.Duration {
	if s.timing.BytesPerSecond <= 0 {
		return 0
	}
	ms := (int64(audioBytes)*1000 + int64(s.timing.BytesPerSecond) - 1) / int64(s.timing.BytesPerSecond)
	return time.Duration(ms) * time.Millisecond
}

// endConversationRecord ends convo with reason, tolerating nil.
func (s *Session) endConversationRecord(convo memory.Conversation, reason memory.EndReason) {
	if convo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
	defer cancel()
	if err := convo.End(ctx, reason); err != nil {
		s.log.Debug("conversation end failed", "session", s.ID, "error", err)
	}
}
