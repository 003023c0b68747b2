package server

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
	sttmock "github.com/avirajsharma-ops/sameer/pkg/provider/stt/mock"
)

// eventRecorder collects transcription events delivered to the session
// callback.
type eventRecorder struct {
	mu     sync.Mutex
	events []stt.Event
}

func (r *eventRecorder) record(ev stt.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []stt.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stt.Event, len(r.events))
	copy(out, r.events)
	return out
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTranscriberForwardsEvents(t *testing.T) {
	t.Parallel()

	stream := sttmock.NewStream()
	provider := &sttmock.Provider{Handle: stream}
	rec := &eventRecorder{}

	tr := newTranscriber(provider, stt.StreamConfig{SampleRate: 16000, Channels: 1}, "s1", slog.Default(), rec.record)
	tr.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Stop()

	waitUntil(t, func() bool { return provider.StartCount() >= 1 })

	stream.Emit(stt.Event{Kind: stt.EventText, Text: "hello", IsFinal: false})
	stream.Emit(stt.Event{Kind: stt.EventText, Text: "hello there", IsFinal: true})
	stream.Emit(stt.Event{Kind: stt.EventUtteranceEnd})

	waitUntil(t, func() bool { return len(rec.snapshot()) == 3 })

	got := rec.snapshot()
	if got[0].Text != "hello" || got[0].IsFinal {
		t.Errorf("first event = %+v, want interim hello", got[0])
	}
	if got[1].Text != "hello there" || !got[1].IsFinal {
		t.Errorf("second event = %+v, want final", got[1])
	}
	if got[2].Kind != stt.EventUtteranceEnd {
		t.Errorf("third event kind = %q, want utterance_end", got[2].Kind)
	}
}

func TestTranscriberReconnectsAfterStreamClose(t *testing.T) {
	t.Parallel()

	// Fresh stream per StartStream call so the closed one is not reused.
	provider := &sttmock.Provider{}
	rec := &eventRecorder{}

	tr := newTranscriber(provider, stt.StreamConfig{SampleRate: 16000, Channels: 1}, "s1", slog.Default(), rec.record)
	tr.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Stop()

	waitUntil(t, func() bool { return provider.StartCount() >= 1 })
	first := provider.StartedStream(0)
	first.Emit(stt.Event{Kind: stt.EventText, Text: "before drop", IsFinal: true})
	waitUntil(t, func() bool { return len(rec.snapshot()) == 1 })

	// Provider-side disconnect: closing the event channel ends the pump
	// loop and triggers a reconnect after the retry delay.
	_ = first.Close()

	waitUntil(t, func() bool { return provider.StartCount() >= 2 })
	second := provider.StartedStream(1)
	second.Emit(stt.Event{Kind: stt.EventText, Text: "after reconnect", IsFinal: true})

	waitUntil(t, func() bool { return len(rec.snapshot()) == 2 })
	if got := rec.snapshot()[1].Text; got != "after reconnect" {
		t.Errorf("post-reconnect text = %q", got)
	}
}

func TestTranscriberDropsAudioDuringReconnect(t *testing.T) {
	t.Parallel()

	provider := &sttmock.Provider{}
	tr := newTranscriber(provider, stt.StreamConfig{SampleRate: 16000, Channels: 1}, "s1", slog.Default(), func(stt.Event) {})
	tr.retryDelay = time.Hour // hold in the reconnect gap

	// No Run yet: handle is nil, audio must be dropped without error.
	tr.SendAudio([]byte{1, 2, 3})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Stop()

	waitUntil(t, func() bool { return provider.StartCount() >= 1 })
	stream := provider.StartedStream(0)

	tr.SendAudio([]byte{4, 5, 6})
	waitUntil(t, func() bool { return len(stream.Chunks()) == 1 })
}

func TestTranscriberStop(t *testing.T) {
	t.Parallel()

	stream := sttmock.NewStream()
	provider := &sttmock.Provider{Handle: stream}
	tr := newTranscriber(provider, stt.StreamConfig{SampleRate: 16000, Channels: 1}, "s1", slog.Default(), func(stt.Event) {})

	done := make(chan struct{})
	go func() {
		tr.Run(context.Background())
		close(done)
	}()

	waitUntil(t, func() bool { return provider.StartCount() >= 1 })
	tr.Stop()
	tr.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if !stream.Closed() {
		t.Error("stream not closed after Stop")
	}
}
