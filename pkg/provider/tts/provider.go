// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech synthesis service and converts one reply's text
// into raw PCM audio bytes. The returned bytes are delivered to the client in
// a single frame; the caller estimates playback duration from the byte length
// when arming the conversation silence timer.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// PCM output format shared by all synthesizer implementations: 24 kHz mono
// 16-bit little-endian samples.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2

	// BytesPerSecond is the playback rate of synthesized audio, used to
	// estimate how long a reply takes to play on the client.
	BytesPerSecond = SampleRate * Channels * BytesPerSample
)

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize converts text into raw PCM audio bytes in the package's
	// shared output format.
	//
	// A nil byte slice with a nil error means the synthesizer is currently
	// unavailable (e.g., not configured); callers deliver the reply as text
	// only. A non-nil error indicates a failed synthesis attempt.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
