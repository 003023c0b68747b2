package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
	memmock "github.com/avirajsharma-ops/sameer/pkg/memory/mock"
	embmock "github.com/avirajsharma-ops/sameer/pkg/provider/embeddings/mock"
	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
	llmmock "github.com/avirajsharma-ops/sameer/pkg/provider/llm/mock"
	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
	ttsmock "github.com/avirajsharma-ops/sameer/pkg/provider/tts/mock"
)

// recordSink captures outbound session events for assertions.
type recordSink struct {
	mu          sync.Mutex
	finals      []string
	interims    []string
	modes       []Mode
	questions   []PendingQuestion
	responses   []string
	voiceBytes  int
	errMessages []string
}

func (r *recordSink) SendTranscript(text string, isFinal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isFinal {
		r.finals = append(r.finals, text)
	} else {
		r.interims = append(r.interims, text)
	}
}

func (r *recordSink) SendModeChange(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
}

func (r *recordSink) SendQuestion(q PendingQuestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, q)
}

func (r *recordSink) SendResponse(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, text)
}

func (r *recordSink) SendVoice(audio []byte, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voiceBytes += len(audio)
}

func (r *recordSink) SendError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMessages = append(r.errMessages, message)
}

func (r *recordSink) responseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

func (r *recordSink) lastResponse() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return ""
	}
	return r.responses[len(r.responses)-1]
}

func (r *recordSink) modeChanges() []Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.modes)
}

func (r *recordSink) questionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.questions)
}

// fixture bundles a session with all its mocks.
type fixture struct {
	s           *Session
	sink        *recordSink
	gen         *llmmock.Generator
	synth       *ttsmock.Synthesizer
	embed       *embmock.Provider
	convos      *memmock.ConversationStore
	transcripts *memmock.TranscriptStore
	profiles    *memmock.ProfileStore
}

func newFixture(t *testing.T, mut func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		sink:        &recordSink{},
		gen:         &llmmock.Generator{Reply: "generated reply"},
		synth:       &ttsmock.Synthesizer{Audio: []byte("pcm-bytes")},
		embed:       &embmock.Provider{},
		convos:      &memmock.ConversationStore{},
		transcripts: &memmock.TranscriptStore{},
		profiles:    &memmock.ProfileStore{},
	}

	// The default base keeps the silence timer out of the way; the timeout
	// test shortens it explicitly.
	cfg := Config{
		Timing: Timing{
			Base:           time.Hour,
			BytesPerSecond: 48000,
		},
		Proactive: ProactiveConfig{
			Cooldown: time.Hour,
		},
	}
	if mut != nil {
		mut(&cfg)
	}

	f.s = New(context.Background(), "sess-1", "user-1", f.sink, Providers{
		Generator:     f.gen,
		Synthesizer:   f.synth,
		Embedder:      f.embed,
		Transcripts:   f.transcripts,
		Conversations: f.convos,
		Profiles:      f.profiles,
	}, cfg)
	t.Cleanup(f.s.Close)
	return f
}

func finalText(text string) stt.Event {
	return stt.Event{Kind: stt.EventText, Text: text, IsFinal: true}
}

func utteranceEnd() stt.Event {
	return stt.Event{Kind: stt.EventUtteranceEnd}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionStartsInMonitoring(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	if got := f.s.Mode(); got != ModeMonitoring {
		t.Errorf("initial mode = %q, want monitoring", got)
	}
}

func TestWakePhraseEntersConversation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("hey buddy what's up"))

	if got := f.s.Mode(); got != ModeConversation {
		t.Fatalf("mode = %q, want conversation", got)
	}
	waitFor(t, time.Second, "generated reply", func() bool {
		return f.sink.responseCount() > 0
	})

	if n := f.gen.CallCount(); n != 1 {
		t.Errorf("generator calls = %d, want 1", n)
	}
	if got := f.gen.LastCall().Req.Input; got != "what's up" {
		t.Errorf("generator input = %q, want payload without wake phrase", got)
	}
	if f.sink.lastResponse() != "generated reply" {
		t.Errorf("response = %q", f.sink.lastResponse())
	}
	if convo := f.convos.Last(); convo == nil || convo.Kind != "wake" {
		t.Error("conversation record not created with kind wake")
	}

	// A second wake phrase while already conversing must not re-enter.
	f.s.HandleTranscript(finalText("sameer are you there"))
	if got := f.sink.modeChanges(); len(got) != 1 {
		t.Errorf("mode changes = %v, want a single transition", got)
	}
}

func TestTrivialWakePayloadGetsCannedGreeting(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("hey sameer"))

	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() > 0
	})
	if n := f.gen.CallCount(); n != 0 {
		t.Errorf("generator calls = %d, want 0 for a trivial payload", n)
	}
	if !slices.Contains(greetings, f.sink.lastResponse()) {
		t.Errorf("response %q is not a canned greeting", f.sink.lastResponse())
	}
}

func TestConversationTurnKeepsHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("sameer tell me about your day"))
	waitFor(t, time.Second, "opening reply", func() bool {
		return f.sink.responseCount() == 1
	})

	f.s.HandleTranscript(finalText("and what about tomorrow"))
	waitFor(t, time.Second, "turn reply", func() bool {
		return f.sink.responseCount() == 2
	})

	last := f.gen.LastCall().Req
	if last.Input != "and what about tomorrow" {
		t.Errorf("turn input = %q", last.Input)
	}
	var roles []string
	for _, m := range last.History {
		roles = append(roles, m.Role)
	}
	// Opening user payload, its reply, then the new user turn.
	want := []string{"user", "assistant", "user"}
	if !slices.Equal(roles, want) {
		t.Errorf("history roles = %v, want %v", roles, want)
	}
}

func TestSilenceTimeoutReturnsToMonitoring(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = 30 * time.Millisecond
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() >= 1
	})

	waitFor(t, time.Second, "silence timeout", func() bool {
		return f.s.Mode() == ModeMonitoring
	})

	var signoffCount int
	f.sink.mu.Lock()
	for _, r := range f.sink.responses {
		if slices.Contains(signoffs, r) {
			signoffCount++
		}
	}
	f.sink.mu.Unlock()
	if signoffCount != 1 {
		t.Errorf("sign-off delivered %d times, want exactly once", signoffCount)
	}

	waitFor(t, time.Second, "conversation end", func() bool {
		convo := f.convos.Last()
		return convo != nil && convo.Ended()
	})
	if got := f.convos.Last().Reason(); got != "timeout" {
		t.Errorf("end reason = %q, want timeout", got)
	}
}

func TestEndConversationCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = time.Hour // silence timer must not interfere
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() == 1
	})
	waitFor(t, time.Second, "conversation record", func() bool {
		return f.convos.Last() != nil
	})

	f.s.EndConversation()

	if got := f.s.Mode(); got != ModeMonitoring {
		t.Errorf("mode = %q, want monitoring", got)
	}
	if got := f.convos.Last().Reason(); got != "completed" {
		t.Errorf("end reason = %q, want completed", got)
	}
	// No sign-off on explicit end.
	if n := f.sink.responseCount(); n != 1 {
		t.Errorf("responses = %d, want 1 (no sign-off)", n)
	}
}

func TestGenerationFailureSkipsTurnButKeepsTimer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = time.Hour
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() == 1
	})

	f.gen.Err = errors.New("backend down")
	f.s.HandleTranscript(finalText("how are you holding up"))

	waitFor(t, time.Second, "failed turn settles", func() bool {
		f.s.mu.Lock()
		defer f.s.mu.Unlock()
		return !f.s.processing
	})

	if n := f.sink.responseCount(); n != 1 {
		t.Errorf("responses = %d, want 1 (failed turn skipped)", n)
	}
	if got := f.s.Mode(); got != ModeConversation {
		t.Errorf("mode = %q, want conversation preserved", got)
	}
	if !f.s.timers.Active(f.s.ID) {
		t.Error("silence timer left unset after a failed turn")
	}
}

func TestMonitoringDispatchesUtterance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("i had a"))
	f.s.HandleTranscript(finalText("really long day today"))
	f.s.HandleTranscript(utteranceEnd())

	waitFor(t, time.Second, "utterance persisted", func() bool {
		return f.transcripts.Count() == 1
	})

	saved := f.transcripts.Saved[0]
	if saved.Text != "i had a really long day today" {
		t.Errorf("saved text = %q", saved.Text)
	}
	if !slices.Contains(saved.Markers, "temporal") {
		t.Errorf("saved markers = %v, want temporal", saved.Markers)
	}

	f.s.mu.Lock()
	observed := slices.Clone(f.s.observed)
	f.s.mu.Unlock()

	if len(observed) != 1 || observed[0] != "i had a really long day today" {
		t.Errorf("observed = %v", observed)
	}
	if n := f.gen.CallCount(); n != 0 {
		t.Errorf("generator calls = %d, want 0 in monitoring", n)
	}
}

func TestShortUtteranceDiscarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("uh"))
	f.s.HandleTranscript(utteranceEnd())

	time.Sleep(30 * time.Millisecond)
	if n := f.transcripts.Count(); n != 0 {
		t.Errorf("saved utterances = %d, want 0", n)
	}
}

func TestPendingQuestionAskedOnSilence(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.mu.Lock()
	f.s.pending = &PendingQuestion{Text: "How was the concert?", Origin: OriginContextual}
	f.s.mu.Unlock()

	f.s.HandleTranscript(utteranceEnd())

	waitFor(t, time.Second, "question delivery", func() bool {
		return f.sink.questionCount() == 1
	})

	f.s.mu.Lock()
	pending := f.s.pending
	cooling := f.s.inCooldown()
	f.s.mu.Unlock()
	if pending != nil {
		t.Error("pending question not cleared after asking")
	}
	if !cooling {
		t.Error("cooldown not started after asking")
	}

	// During cooldown a new pending question must not be delivered.
	f.s.mu.Lock()
	f.s.pending = &PendingQuestion{Text: "Another?", Origin: OriginProactive}
	f.s.mu.Unlock()
	f.s.HandleTranscript(utteranceEnd())

	time.Sleep(30 * time.Millisecond)
	if n := f.sink.questionCount(); n != 1 {
		t.Errorf("questions = %d, want 1 (cooldown active)", n)
	}
}

func TestStaleReplyDiscarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = time.Hour
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() == 1
	})

	f.s.mu.Lock()
	oldEpoch := f.s.epoch
	f.s.mu.Unlock()

	f.s.EndConversation()

	// A reply produced for the ended conversation must be dropped.
	f.s.deliverReply(oldEpoch, "late reply")
	if n := f.sink.responseCount(); n != 1 {
		t.Errorf("responses = %d, want 1 (stale reply discarded)", n)
	}
}

func TestUserSpeakingReArmsTimer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = time.Hour
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() == 1
	})

	f.s.UserSpeaking()
	if !f.s.timers.Active(f.s.ID) {
		t.Error("timer not armed after user_speaking")
	}
	if got := f.s.Mode(); got != ModeConversation {
		t.Errorf("mode = %q, want conversation", got)
	}
}

func TestPauseBlocksTranscripts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.Pause()
	f.s.HandleTranscript(finalText("hey sameer how are you"))
	if got := f.s.Mode(); got != ModeMonitoring {
		t.Errorf("mode = %q, want monitoring while paused", got)
	}

	f.s.Resume()
	f.s.HandleTranscript(finalText("hey sameer how are you"))
	if got := f.s.Mode(); got != ModeConversation {
		t.Errorf("mode = %q, want conversation after resume", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Timing.Base = time.Hour
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "conversation record", func() bool {
		return f.convos.Last() != nil
	})

	// Leave something in the accumulator to flush on teardown.
	f.s.EndConversation()
	f.s.HandleTranscript(finalText("remember to buy milk"))

	f.s.Close()
	f.s.Close() // second call must be a no-op

	if got := f.convos.Last().Reason(); got == "" {
		t.Error("conversation not ended on teardown")
	}
	waitFor(t, time.Second, "final flush", func() bool {
		return f.transcripts.Count() == 1
	})
	if f.s.timers.Active(f.s.ID) {
		t.Error("timer still armed after close")
	}
}

func TestSynthesisUnavailableStillReplies(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.synth.Audio = nil // nil, nil = unavailable

	f.s.HandleTranscript(finalText("sameer what should i cook tonight"))
	waitFor(t, time.Second, "reply", func() bool {
		return f.sink.responseCount() > 0
	})

	f.sink.mu.Lock()
	voice := f.sink.voiceBytes
	f.sink.mu.Unlock()
	if voice != 0 {
		t.Errorf("voice bytes = %d, want 0 when synthesis unavailable", voice)
	}
	if !strings.Contains(f.sink.lastResponse(), "generated reply") {
		t.Errorf("text reply missing: %q", f.sink.lastResponse())
	}
}

func TestTranscriptErrorSurfacesNotice(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(stt.Event{Kind: stt.EventError, Err: errors.New("ws closed")})

	f.sink.mu.Lock()
	n := len(f.sink.errMessages)
	f.sink.mu.Unlock()
	if n != 1 {
		t.Errorf("error notices = %d, want 1", n)
	}
	if got := f.s.Mode(); got != ModeMonitoring {
		t.Errorf("mode = %q, want unchanged", got)
	}
}

// gateGenerator blocks every Generate call until release is closed and
// tracks how many calls run concurrently.
type gateGenerator struct {
	mu       sync.Mutex
	reply    string
	release  chan struct{}
	openOnce sync.Once
	inputs   []string
	inFlight int
	peak     int
}

func newGateGenerator(reply string) *gateGenerator {
	return &gateGenerator{reply: reply, release: make(chan struct{})}
}

// open lets every parked and future Generate call proceed. Idempotent.
func (g *gateGenerator) open() {
	g.openOnce.Do(func() { close(g.release) })
}

func (g *gateGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.inputs = append(g.inputs, req.Input)
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
	}

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return g.reply, nil
}

func (g *gateGenerator) peakInFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

func (g *gateGenerator) callInputs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.inputs)
}

// blockingTranscriptStore parks SaveUtterance until release is closed,
// signalling entry on entered.
type blockingTranscriptStore struct {
	mu          sync.Mutex
	saved       []memory.Utterance
	entered     chan struct{}
	release     chan struct{}
	releaseOnce sync.Once
}

func newBlockingTranscriptStore() *blockingTranscriptStore {
	return &blockingTranscriptStore{
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

// unblock lets every parked and future SaveUtterance call proceed. Idempotent.
func (s *blockingTranscriptStore) unblock() {
	s.releaseOnce.Do(func() { close(s.release) })
}

func (s *blockingTranscriptStore) SaveUtterance(_ context.Context, u memory.Utterance) error {
	s.entered <- struct{}{}
	<-s.release
	s.mu.Lock()
	s.saved = append(s.saved, u)
	s.mu.Unlock()
	return nil
}

func (s *blockingTranscriptStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// A monitoring dispatch still in flight when a wake phrase arrives belongs
// to the previous epoch. When it finishes it must not clear the processing
// flag the opening turn set, or a second turn could run alongside it.
func TestStaleDispatchDoesNotUnblockOpeningTurn(t *testing.T) {
	t.Parallel()
	sink := &recordSink{}
	gen := newGateGenerator("slow reply")
	store := newBlockingTranscriptStore()
	s := New(context.Background(), "sess-1", "user-1", sink, Providers{
		Generator:   gen,
		Transcripts: store,
	}, Config{
		Timing:    Timing{Base: time.Hour, BytesPerSecond: 48000},
		Proactive: ProactiveConfig{Cooldown: time.Hour},
	})
	t.Cleanup(s.Close)
	t.Cleanup(store.unblock)
	t.Cleanup(gen.open)

	s.HandleTranscript(finalText("i had a really long day"))
	s.HandleTranscript(utteranceEnd())
	waitFor(t, time.Second, "dispatch to reach the store", func() bool {
		return len(store.entered) == 1
	})

	// Wake while the dispatch is parked; the opening turn starts and
	// blocks in the generator.
	s.HandleTranscript(finalText("hey buddy tell me a story please"))
	waitFor(t, time.Second, "opening turn to reach the generator", func() bool {
		return gen.peakInFlight() >= 1
	})

	// Let the stale dispatch finish, then speak again. The text must
	// buffer behind the opening turn, not start a second one.
	store.unblock()
	waitFor(t, time.Second, "stale dispatch to complete", func() bool {
		return store.count() == 1
	})
	time.Sleep(20 * time.Millisecond)

	s.HandleTranscript(finalText("and we can talk more"))
	time.Sleep(30 * time.Millisecond)
	if got := gen.peakInFlight(); got != 1 {
		t.Fatalf("concurrent generator calls = %d, want 1", got)
	}

	gen.open()
	waitFor(t, time.Second, "opening reply", func() bool {
		return sink.responseCount() == 1
	})
	s.HandleTranscript(utteranceEnd())
	waitFor(t, time.Second, "buffered text to become the next turn", func() bool {
		return sink.responseCount() == 2
	})

	if got := gen.peakInFlight(); got != 1 {
		t.Errorf("concurrent generator calls = %d, want 1", got)
	}
	inputs := gen.callInputs()
	if len(inputs) != 2 || inputs[1] != "and we can talk more" {
		t.Errorf("generator inputs = %v", inputs)
	}
}

// With no generator configured a wake phrase still opens the conversation;
// the opening reply is skipped like any other generation failure and the
// silence timer stays armed.
func TestMissingGeneratorSkipsReplyKeepsTimer(t *testing.T) {
	t.Parallel()
	sink := &recordSink{}
	s := New(context.Background(), "sess-1", "user-1", sink, Providers{
		Transcripts: &memmock.TranscriptStore{},
	}, Config{
		Timing:    Timing{Base: time.Hour, BytesPerSecond: 48000},
		Proactive: ProactiveConfig{Cooldown: time.Hour},
	})
	t.Cleanup(s.Close)

	s.HandleTranscript(finalText("sameer tell me something nice please"))

	if got := s.Mode(); got != ModeConversation {
		t.Fatalf("mode = %q, want conversation", got)
	}
	waitFor(t, time.Second, "opening turn to settle", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.processing
	})

	if n := sink.responseCount(); n != 0 {
		t.Errorf("responses = %d, want 0 without a generator", n)
	}
	if !s.timers.Active(s.ID) {
		t.Error("silence timer left unset after the skipped reply")
	}
}

// An ask command arriving while a turn is in flight joins the accumulator
// and becomes the next turn instead of running concurrently.
func TestAskDuringTurnBuffersUntilFlush(t *testing.T) {
	t.Parallel()
	sink := &recordSink{}
	gen := newGateGenerator("gated reply")
	s := New(context.Background(), "sess-1", "user-1", sink, Providers{
		Generator: gen,
	}, Config{
		Timing:    Timing{Base: time.Hour, BytesPerSecond: 48000},
		Proactive: ProactiveConfig{Cooldown: time.Hour},
	})
	t.Cleanup(s.Close)
	t.Cleanup(gen.open)

	s.StartConversation("please tell me a long story")
	waitFor(t, time.Second, "opening turn to reach the generator", func() bool {
		return gen.peakInFlight() >= 1
	})

	s.Ask("what's the weather like")
	time.Sleep(30 * time.Millisecond)
	if got := gen.peakInFlight(); got != 1 {
		t.Fatalf("concurrent generator calls = %d, want 1", got)
	}

	gen.open()
	waitFor(t, time.Second, "opening reply", func() bool {
		return sink.responseCount() == 1
	})
	s.HandleTranscript(utteranceEnd())
	waitFor(t, time.Second, "buffered question to become a turn", func() bool {
		return sink.responseCount() == 2
	})

	inputs := gen.callInputs()
	if len(inputs) != 2 || inputs[1] != "what's the weather like" {
		t.Errorf("generator inputs = %v", inputs)
	}
	if got := gen.peakInFlight(); got != 1 {
		t.Errorf("concurrent generator calls = %d, want 1", got)
	}
}

func TestUtteranceConfidencePersisted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(stt.Event{
		Kind: stt.EventText, Text: "thinking about dinner plans", IsFinal: true, Confidence: 0.87,
	})
	f.s.HandleTranscript(utteranceEnd())

	waitFor(t, time.Second, "utterance persisted", func() bool {
		return f.transcripts.Count() == 1
	})
	if got := f.transcripts.Saved[0].Confidence; got != 0.87 {
		t.Errorf("saved confidence = %v, want 0.87", got)
	}
}

func TestMonitoredUtteranceSavedAsFact(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.HandleTranscript(finalText("my sister got a new job"))
	f.s.HandleTranscript(utteranceEnd())

	waitFor(t, time.Second, "profile fact saved", func() bool {
		return len(f.profiles.Recorded()) == 1
	})
	fact := f.profiles.Recorded()[0]
	if fact.Category != "relationships" {
		t.Errorf("fact category = %q, want relationships", fact.Category)
	}
	if fact.UserID != "user-1" {
		t.Errorf("fact user = %q", fact.UserID)
	}
	if len(fact.Embedding) == 0 {
		t.Error("fact saved without an embedding")
	}

	waitFor(t, time.Second, "dispatch to settle", func() bool {
		f.s.mu.Lock()
		defer f.s.mu.Unlock()
		return !f.s.processing
	})

	// An exact repeat matches the stored fact and is not saved again.
	f.s.HandleTranscript(finalText("my sister got a new job"))
	f.s.HandleTranscript(utteranceEnd())
	waitFor(t, time.Second, "second utterance persisted", func() bool {
		return f.transcripts.Count() == 2
	})
	time.Sleep(30 * time.Millisecond)
	if n := len(f.profiles.Recorded()); n != 1 {
		t.Errorf("facts = %d, want 1 after a repeated utterance", n)
	}
}
