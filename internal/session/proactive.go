package session

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
)

// ProactiveConfig tunes the per-session question scheduler.
type ProactiveConfig struct {
	// Interval between scheduler ticks. Zero disables the scheduler.
	Interval time.Duration

	// GapProbability is the per-tick chance of queueing a profile-gap
	// question when nothing interesting was overheard.
	GapProbability float64

	// Cooldown suppresses further questions after one is asked.
	Cooldown time.Duration
}

// Interest marker vocabularies. A monitored utterance containing any of
// these looks worth following up on.
var (
	firstPersonMarkers = []string{
		"i feel", "i think", "i love", "i hate", "i like", "i want",
		"i wish", "i miss", "i'm so", "i am so", "i can't", "i hope",
	}
	temporalMarkers = []string{
		"yesterday", "today", "tomorrow", "tonight", "last night",
		"last week", "next week", "this morning", "this evening",
	}
	relationshipMarkers = []string{
		"my mom", "my dad", "my mother", "my father", "my brother",
		"my sister", "my friend", "my wife", "my husband", "my boss",
		"my colleague", "my son", "my daughter",
	}
)

// InterestMarkers returns which marker classes text matches: first_person,
// temporal, relationship. An empty result means the text is not worth a
// follow-up question.
func InterestMarkers(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	if containsAny(lower, firstPersonMarkers) {
		found = append(found, "first_person")
	}
	if containsAny(lower, temporalMarkers) {
		found = append(found, "temporal")
	}
	if containsAny(lower, relationshipMarkers) {
		found = append(found, "relationship")
	}
	return found
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// proactiveLoop is the per-session scheduler goroutine. Started by New when
// the interval is non-zero, stopped by Close.
func (s *Session) proactiveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.ProactiveTick()
		}
	}
}

// ProactiveTick runs one scheduler pass. Monitoring mode only; skipped
// entirely while a question is pending, the cooldown is active, or the
// session is paused. Whatever branch is taken, the observed-utterance buffer
// is cleared so one batch of speech is considered at most once.
func (s *Session) ProactiveTick() {
	s.mu.Lock()

	if s.closed || s.paused || s.mode != ModeMonitoring || s.pending != nil || s.inCooldown() {
		s.observed = nil
		s.mu.Unlock()
		return
	}

	observed := s.observed
	s.observed = nil
	userID := s.UserID
	epoch := s.epoch
	s.mu.Unlock()

	var interesting []string
	for _, text := range observed {
		if len(InterestMarkers(text)) > 0 {
			interesting = append(interesting, text)
		}
	}

	switch {
	case len(interesting) > 0:
		s.queueContextualQuestion(userID, epoch, interesting)
	case rand.Float64() < s.proactive.GapProbability:
		s.queueGapQuestion(userID, epoch)
	}
}

// queueContextualQuestion asks the generator for a follow-up question about
// recently overheard speech and stores it as the pending question.
func (s *Session) queueContextualQuestion(userID string, epoch uint64, observed []string) {
	prompt := fmt.Sprintf(
		"You overheard your companion say: %q. "+
			"Ask one short, warm follow-up question about it. "+
			"Reply with the question only.",
		strings.Join(observed, " … "),
	)
	question, err := s.generate(llm.Request{UserID: userID, Input: prompt})
	if err != nil {
		s.log.Debug("contextual question generation failed", "session", s.ID, "error", err)
		return
	}
	s.storePending(epoch, PendingQuestion{
		Text:   question,
		Origin: OriginContextual,
	})
}

// queueGapQuestion picks the profile dimension with the least data and asks
// the generator for a question that fills it.
func (s *Session) queueGapQuestion(userID string, epoch uint64) {
	category := memory.Categories[0]
	if s.profiles != nil {
		got, err := s.profiles.GapCategory(s.ctx, userID)
		if err != nil {
			s.log.Debug("gap category lookup failed", "session", s.ID, "error", err)
		} else if got != "" {
			category = got
		}
	}

	question, err := s.generate(llm.Request{
		UserID: userID,
		Input: fmt.Sprintf(
			"Ask your companion one casual getting-to-know-you question "+
				"about their %s. Reply with the question only.",
			strings.ReplaceAll(category, "_", " "),
		),
	})
	if err != nil {
		s.log.Debug("gap question generation failed", "session", s.ID, "error", err)
		return
	}
	s.storePending(epoch, PendingQuestion{
		Text:     question,
		Category: category,
		Origin:   OriginProactive,
	})
}

// storePending records q as the session's pending question, unless the
// session moved on while generation was in flight: a mode change, an
// existing pending question, or teardown all discard the result.
func (s *Session) storePending(epoch uint64, q PendingQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.epoch != epoch || s.mode != ModeMonitoring || s.pending != nil || s.inCooldown() {
		s.log.Debug("discarding stale pending question", "session", s.ID)
		return
	}
	s.pending = &q
}
