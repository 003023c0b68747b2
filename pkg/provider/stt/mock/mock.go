// Package mock provides test doubles for the stt.Provider and stt.StreamHandle
// interfaces.
//
// Use Provider in unit tests to feed controlled transcription events into the
// session state machine without a live STT connection:
//
//	h := mock.NewStream()
//	p := &mock.Provider{Handle: h}
//	// ...
//	h.Emit(stt.Event{Kind: stt.EventText, Text: "hey sameer", IsFinal: true})
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Handle is returned by StartStream. When nil, a fresh Stream is created
	// per call.
	Handle *Stream

	// StartErr, if non-nil, is returned by StartStream.
	StartErr error

	// StartCalls records the StreamConfig of every StartStream invocation.
	StartCalls []stt.StreamConfig

	// Started holds every handle handed out by StartStream, in order.
	Started []*Stream
}

// StartStream records the call and returns Handle (or a fresh Stream), StartErr.
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.StreamHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartCalls = append(p.StartCalls, cfg)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	h := p.Handle
	if h == nil {
		h = NewStream()
	}
	p.Started = append(p.Started, h)
	return h, nil
}

// StartCount returns the number of StartStream calls so far.
func (p *Provider) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.StartCalls)
}

// StartedStream returns the i-th handle handed out by StartStream, or nil
// when fewer streams have been started.
func (p *Provider) StartedStream(i int) *Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.Started) {
		return nil
	}
	return p.Started[i]
}

// Stream is a mock implementation of stt.StreamHandle. Events pushed via Emit
// are delivered to the Events channel; audio sent via SendAudio is recorded.
type Stream struct {
	mu     sync.Mutex
	events chan stt.Event
	closed bool

	// SendAudioErr, if non-nil, is returned by SendAudio.
	SendAudioErr error

	// AudioChunks records every chunk passed to SendAudio.
	AudioChunks [][]byte
}

// NewStream creates a Stream with a buffered events channel.
func NewStream() *Stream {
	return &Stream{events: make(chan stt.Event, 64)}
}

// Emit pushes an event to the Events channel. Emitting on a closed stream is
// a no-op so tests can race teardown without panicking.
func (s *Stream) Emit(ev stt.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// SendAudio records the chunk and returns SendAudioErr.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock stt: stream is closed")
	}
	if s.SendAudioErr != nil {
		return s.SendAudioErr
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.AudioChunks = append(s.AudioChunks, cp)
	return nil
}

// Chunks returns a copy of every chunk recorded by SendAudio.
func (s *Stream) Chunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.AudioChunks))
	copy(out, s.AudioChunks)
	return out
}

// Events returns the event channel.
func (s *Stream) Events() <-chan stt.Event { return s.events }

// Close closes the event channel. Safe to call multiple times.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Compile-time interface checks.
var (
	_ stt.Provider     = (*Provider)(nil)
	_ stt.StreamHandle = (*Stream)(nil)
)
