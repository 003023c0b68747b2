package session

import (
	"sync"
	"time"
)

// Timing converts reply-audio sizes into silence-timer delays.
type Timing struct {
	// Base is the quiet window after estimated playback before the session
	// drops back to monitoring.
	Base time.Duration

	// LatencyPadding absorbs network delay between server send and client
	// playback start.
	LatencyPadding time.Duration

	// BytesPerSecond converts audio byte length into playback duration.
	BytesPerSecond int
}

// ReplyDelay returns the silence-timer delay for a spoken reply of
// audioBytes length: estimated playback + latency padding + base. The
// timeout must not fire while the reply audio is still expected to be
// playing on the client.
func (t Timing) ReplyDelay(audioBytes int) time.Duration {
	var playback time.Duration
	if audioBytes > 0 && t.BytesPerSecond > 0 {
		ms := (int64(audioBytes)*1000 + int64(t.BytesPerSecond) - 1) / int64(t.BytesPerSecond)
		playback = time.Duration(ms) * time.Millisecond
	}
	return playback + t.LatencyPadding + t.Base
}

// PlaybackDelay returns the delay for a client-reported playback duration.
func (t Timing) PlaybackDelay(playback time.Duration) time.Duration {
	if playback < 0 {
		playback = 0
	}
	return playback + t.LatencyPadding + t.Base
}

// SilenceTimers coordinates silence timeouts across sessions. Each session
// holds at most one active timer; arming replaces any existing timer for
// that session. Safe for concurrent use.
type SilenceTimers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSilenceTimers returns an empty coordinator.
func NewSilenceTimers() *SilenceTimers {
	return &SilenceTimers{timers: make(map[string]*time.Timer)}
}

// Arm schedules onFire after delay for the given session, cancelling and
// replacing any timer already armed for it. onFire runs on a timer
// goroutine; it is the callback's job to re-check session state.
func (st *SilenceTimers) Arm(sessionID string, delay time.Duration, onFire func()) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if old, ok := st.timers[sessionID]; ok {
		old.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		st.mu.Lock()
		// Only clear the slot if it still belongs to this firing; a
		// replacement armed between fire and lock acquisition stays.
		if st.timers[sessionID] == timer {
			delete(st.timers, sessionID)
		}
		st.mu.Unlock()
		onFire()
	})
	st.timers[sessionID] = timer
}

// Cancel stops and removes the session's timer, if any. Safe to call when no
// timer is armed, and safe to call repeatedly.
func (st *SilenceTimers) Cancel(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if timer, ok := st.timers[sessionID]; ok {
		timer.Stop()
		delete(st.timers, sessionID)
	}
}

// Active reports whether a timer is currently armed for the session.
func (st *SilenceTimers) Active(sessionID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.timers[sessionID]
	return ok
}
