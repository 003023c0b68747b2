package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
)

// defaultRetryDelay is the fixed delay between transcription stream
// reconnect attempts.
const defaultRetryDelay = 2 * time.Second

// transcriber pipes one connection's audio into the STT provider and its
// events back out, reconnecting the stream with a fixed delay whenever the
// provider drops it. Session mode and buffers live elsewhere and survive a
// reconnect untouched.
//
// All methods are safe for concurrent use.
type transcriber struct {
	provider   stt.Provider
	cfg        stt.StreamConfig
	retryDelay time.Duration
	onEvent    func(stt.Event)
	log        *slog.Logger
	sessionID  string

	mu       sync.Mutex
	handle   stt.StreamHandle
	done     chan struct{}
	stopOnce sync.Once
}

func newTranscriber(provider stt.Provider, cfg stt.StreamConfig, sessionID string, log *slog.Logger, onEvent func(stt.Event)) *transcriber {
	return &transcriber{
		provider:   provider,
		cfg:        cfg,
		retryDelay: defaultRetryDelay,
		onEvent:    onEvent,
		log:        log,
		sessionID:  sessionID,
		done:       make(chan struct{}),
	}
}

// Run connects the stream and pumps events until ctx ends or Stop is
// called. Disconnects trigger reconnection after the fixed retry delay;
// there is no attempt cap because a session without transcription is
// useless anyway.
func (t *transcriber) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		handle, err := t.provider.StartStream(ctx, t.cfg)
		if err != nil {
			t.log.Warn("transcription stream connect failed",
				"session", t.sessionID,
				"retry_in", t.retryDelay,
				"error", err,
			)
			if !t.wait(ctx) {
				return
			}
			continue
		}

		t.mu.Lock()
		t.handle = handle
		t.mu.Unlock()
		t.log.Info("transcription stream connected", "session", t.sessionID)

		// Pump events until the stream dies.
		for ev := range handle.Events() {
			t.onEvent(ev)
		}

		t.mu.Lock()
		t.handle = nil
		t.mu.Unlock()
		_ = handle.Close()

		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		t.log.Warn("transcription stream dropped, reconnecting",
			"session", t.sessionID,
			"retry_in", t.retryDelay,
		)
		if !t.wait(ctx) {
			return
		}
	}
}

// SendAudio forwards a PCM chunk to the live stream. Audio arriving during a
// reconnect window is dropped; transcription picks up again with the next
// chunk after the stream returns.
func (t *transcriber) SendAudio(chunk []byte) {
	t.mu.Lock()
	handle := t.handle
	t.mu.Unlock()

	if handle == nil {
		return
	}
	if err := handle.SendAudio(chunk); err != nil {
		t.log.Debug("audio forward failed", "session", t.sessionID, "error", err)
	}
}

// Stop shuts the pipe down. Safe to call more than once.
func (t *transcriber) Stop() {
	t.stopOnce.Do(func() { close(t.done) })

	t.mu.Lock()
	handle := t.handle
	t.handle = nil
	t.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
}

// wait sleeps for the retry delay; false means the pipe should exit.
func (t *transcriber) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-t.done:
		return false
	case <-time.After(t.retryDelay):
		return true
	}
}
