package stt

// EventKind discriminates the payload of an Event.
type EventKind string

const (
	// EventSpeechStarted signals that the provider detected the onset of
	// speech after a period of silence. Carries no text.
	EventSpeechStarted EventKind = "speech_started"

	// EventText carries transcribed text. IsFinal distinguishes authoritative
	// results from low-latency interim guesses.
	EventText EventKind = "text"

	// EventUtteranceEnd signals a provider-detected natural pause: the
	// speaker has finished an utterance. Carries no text.
	EventUtteranceEnd EventKind = "utterance_end"

	// EventError signals a provider-side failure. The stream is dead after
	// this event and must be reopened.
	EventError EventKind = "error"
)

// Event is a single item emitted by a transcription stream. Events are
// immutable and consumed once, in arrival order.
type Event struct {
	// Kind discriminates the event payload.
	Kind EventKind

	// Text is the transcribed speech content. Only set for EventText.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or interim
	// transcript. Only meaningful for EventText.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Err holds the provider error for EventError.
	Err error
}
