// Package stt defines the Provider interface for streaming Speech-to-Text
// backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram) and
// exposes a uniform streaming interface. The central abstraction is
// StreamHandle: once opened, a stream accepts raw PCM audio frames and emits a
// single ordered sequence of Event values — interim text for live captioning,
// final text for the session log, plus speech-started and utterance-end
// markers that drive the turn-taking state machine.
//
// Implementations must be safe for concurrent use. Audio input and event
// output channels are goroutine-safe by construction.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// transcription stream.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (Opus decode output).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementors may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US",
	// "hi-IN"). An empty string lets the provider auto-detect the language,
	// if supported.
	Language string
}

// StreamHandle represents an open streaming transcription session. It is an
// interface so that test code can provide mock implementations without a live
// provider connection.
//
// Callers must call Close when the stream is no longer needed. Failing to do
// so may leak goroutines and network connections inside the provider
// implementation. All methods must be safe for concurrent use.
type StreamHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider for
	// transcription. The chunk should match the SampleRate, Channels, and
	// bit-depth agreed in StreamConfig. Calling SendAudio after Close
	// returns an error.
	SendAudio(chunk []byte) error

	// Events returns a read-only channel that emits Event values in arrival
	// order. The channel is closed when the stream ends, whether by Close or
	// by a provider-side disconnect. After an EventError the stream is dead
	// and must be reopened via Provider.StartStream.
	Events() <-chan Event

	// Close terminates the stream, flushes any pending audio, and releases
	// all associated resources. After Close returns the Events channel will
	// be closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
//
// Implementations must be safe for concurrent use. Multiple streams may be
// open simultaneously (one per connected client).
type Provider interface {
	// StartStream opens a new streaming transcription session with the given
	// audio format and recognition configuration. The returned StreamHandle
	// is ready to accept audio immediately.
	//
	// Returns an error if the provider cannot establish the session (e.g.,
	// authentication failure, unsupported configuration, or ctx already
	// cancelled). The caller owns the StreamHandle and must call Close when
	// done.
	StartStream(ctx context.Context, cfg StreamConfig) (StreamHandle, error)
}
