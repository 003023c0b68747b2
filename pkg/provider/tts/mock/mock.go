// Package mock provides a test double for the tts.Synthesizer interface.
package mock

import (
	"context"
	"sync"

	"github.com/avirajsharma-ops/sameer/pkg/provider/tts"
)

// Synthesizer is a mock implementation of tts.Synthesizer.
// Zero values cause Synthesize to return (nil, nil), which the session layer
// interprets as "synthesis unavailable".
type Synthesizer struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err is nil.
	Audio []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Texts records every text passed to Synthesize in order.
	Texts []string
}

// Synthesize records the call and returns Audio, Err.
func (s *Synthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, text)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Audio, nil
}

// CallCount returns the number of recorded Synthesize calls. Thread-safe.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Texts)
}

// Compile-time interface check.
var _ tts.Synthesizer = (*Synthesizer)(nil)
