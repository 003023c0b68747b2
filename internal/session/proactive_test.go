package session

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestInterestMarkers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want []string
	}{
		{"i feel a bit overwhelmed", []string{"first_person"}},
		{"yesterday was rough", []string{"temporal"}},
		{"my sister called", []string{"relationship"}},
		{"I think my boss hated the demo yesterday", []string{"first_person", "temporal", "relationship"}},
		{"the weather is nice", nil},
		{"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := InterestMarkers(tc.text)
			if !slices.Equal(got, tc.want) {
				t.Errorf("InterestMarkers(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestProactiveTickContextualQuestion(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.gen.Reply = "How did the meeting go?"

	f.s.mu.Lock()
	f.s.observed = []string{"i think the meeting went badly"}
	f.s.mu.Unlock()

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	observed := f.s.observed
	f.s.mu.Unlock()

	if pending == nil {
		t.Fatal("no pending question queued")
	}
	if pending.Origin != OriginContextual {
		t.Errorf("origin = %q, want contextual", pending.Origin)
	}
	if pending.Text != "How did the meeting go?" {
		t.Errorf("question = %q", pending.Text)
	}
	if observed != nil {
		t.Errorf("observed buffer not cleared: %v", observed)
	}
	if !strings.Contains(f.gen.LastCall().Req.Input, "meeting went badly") {
		t.Errorf("prompt missing overheard text: %q", f.gen.LastCall().Req.Input)
	}
}

func TestProactiveTickGapQuestion(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Proactive.GapProbability = 1.0
	})
	f.gen.Reply = "What does a normal workday look like for you?"
	f.profiles.Gap = "work"

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	f.s.mu.Unlock()

	if pending == nil {
		t.Fatal("no pending question queued")
	}
	if pending.Origin != OriginProactive {
		t.Errorf("origin = %q, want proactive", pending.Origin)
	}
	if pending.Category != "work" {
		t.Errorf("category = %q, want work", pending.Category)
	}
	if !strings.Contains(f.gen.LastCall().Req.Input, "work") {
		t.Errorf("prompt missing category: %q", f.gen.LastCall().Req.Input)
	}
}

func TestProactiveTickZeroProbabilityIsQuiet(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Proactive.GapProbability = 0
	})

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	f.s.mu.Unlock()
	if pending != nil {
		t.Errorf("pending = %+v, want nil with zero probability and nothing observed", pending)
	}
	if n := f.gen.CallCount(); n != 0 {
		t.Errorf("generator calls = %d, want 0", n)
	}
}

func TestProactiveTickSkipsWhilePending(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Proactive.GapProbability = 1.0
	})

	f.s.mu.Lock()
	f.s.pending = &PendingQuestion{Text: "already queued", Origin: OriginProactive}
	f.s.observed = []string{"i love this song"}
	f.s.mu.Unlock()

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	observed := f.s.observed
	f.s.mu.Unlock()

	if pending.Text != "already queued" {
		t.Errorf("pending replaced: %+v", pending)
	}
	if observed != nil {
		t.Error("observed buffer not cleared on skip")
	}
	if n := f.gen.CallCount(); n != 0 {
		t.Errorf("generator calls = %d, want 0 while a question is pending", n)
	}
}

func TestProactiveTickSkipsDuringCooldown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Proactive.GapProbability = 1.0
	})

	f.s.mu.Lock()
	f.s.cooldownUntil = time.Now().Add(time.Hour)
	f.s.mu.Unlock()

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	f.s.mu.Unlock()
	if pending != nil {
		t.Error("question queued during cooldown")
	}
}

func TestProactiveTickSkipsInConversation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.Proactive.GapProbability = 1.0
	})

	f.s.StartConversation("")
	waitFor(t, time.Second, "greeting", func() bool {
		return f.sink.responseCount() >= 1
	})
	calls := f.gen.CallCount()

	f.s.ProactiveTick()

	f.s.mu.Lock()
	pending := f.s.pending
	f.s.mu.Unlock()
	if pending != nil {
		t.Error("question queued while in conversation")
	}
	if n := f.gen.CallCount(); n != calls {
		t.Errorf("generator calls = %d, want %d", n, calls)
	}
}

func TestStorePendingDiscardsStaleResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.s.mu.Lock()
	stale := f.s.epoch
	f.s.mu.Unlock()

	// The session enters conversation while a question was being generated.
	f.s.StartConversation("")

	f.s.storePending(stale, PendingQuestion{Text: "late", Origin: OriginContextual})

	f.s.mu.Lock()
	pending := f.s.pending
	f.s.mu.Unlock()
	if pending != nil {
		t.Error("stale question stored after mode change")
	}
}
