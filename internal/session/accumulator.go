package session

import (
	"strings"
	"unicode"
)

// minUtteranceChars is the minimum number of meaningful (letter or digit)
// characters an utterance must contain to be dispatched. Shorter flushes are
// discarded as transcription noise.
const minUtteranceChars = 3

// Accumulator assembles a stream of final transcript fragments into discrete
// utterances. Fragments are appended as they arrive; a provider-signalled
// utterance end flushes the buffer as one utterance. Interim text never
// enters the accumulator.
//
// Accumulator is not safe for concurrent use; the owning session serialises
// access under its own lock.
type Accumulator struct {
	fragments []string
	lastConf  float64
}

// Append adds one final transcript fragment to the buffer, remembering its
// transcription confidence. Empty or whitespace-only fragments are ignored.
func (a *Accumulator) Append(text string, confidence float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	a.fragments = append(a.fragments, trimmed)
	a.lastConf = confidence
}

// Flush joins the buffered fragments into one utterance and clears the
// buffer. confidence is the last appended fragment's confidence, zero when
// the provider reported none. Returns ok=false when the buffer is empty or
// the joined text falls under the minimum-length guard; the buffer is
// cleared either way, so a discarded utterance is gone, not retried.
func (a *Accumulator) Flush() (utterance string, confidence float64, ok bool) {
	if len(a.fragments) == 0 {
		return "", 0, false
	}
	joined := strings.Join(a.fragments, " ")
	conf := a.lastConf
	a.fragments = a.fragments[:0]
	a.lastConf = 0

	if meaningfulLen(joined) < minUtteranceChars {
		return "", 0, false
	}
	return joined, conf, true
}

// Len returns the number of buffered fragments.
func (a *Accumulator) Len() int {
	return len(a.fragments)
}

// meaningfulLen counts letters and digits, skipping spaces and punctuation.
func meaningfulLen(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
