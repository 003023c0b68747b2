// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface.
//
// The stream is opened with vad_events and utterance_end_ms enabled so that
// Deepgram emits SpeechStarted and UtteranceEnd messages in addition to
// Results; these map directly onto stt.EventSpeechStarted and
// stt.EventUtteranceEnd.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// defaultUtteranceEndMs is the silence gap after which Deepgram emits an
	// UtteranceEnd message.
	defaultUtteranceEndMs = 1000
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "hi").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithSampleRate sets the audio sample rate in Hz for the provider-level default.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// WithUtteranceEndMs sets the silence gap, in milliseconds, after which
// Deepgram reports an utterance end. Default is 1000.
func WithUtteranceEndMs(ms int) Option {
	return func(p *Provider) {
		p.utteranceEndMs = ms
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey         string
	model          string
	language       string
	sampleRate     int
	utteranceEndMs int
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:         apiKey,
		model:          defaultModel,
		language:       defaultLanguage,
		sampleRate:     defaultSampleRate,
		utteranceEndMs: defaultUtteranceEndMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens a streaming transcription session with Deepgram.
// It respects cfg.SampleRate, cfg.Channels, and cfg.Language.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.StreamHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	s := &stream{
		conn:   conn,
		events: make(chan stt.Event, 64),
		audio:  make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)

	return s, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg stt.StreamConfig) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("vad_events", "true")
	q.Set("utterance_end_ms", strconv.Itoa(p.utteranceEndMs))
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- stream ----

// deepgramMessage is the JSON structure of Deepgram WebSocket messages. Only
// the fields the stream cares about are declared.
type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// stream is a live Deepgram streaming session. It implements stt.StreamHandle.
type stream struct {
	conn   *websocket.Conn
	events chan stt.Event
	audio  chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram.
func (s *stream) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: stream is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: stream is closed")
	}
}

// Events returns the channel of transcription events.
func (s *stream) Events() <-chan stt.Event { return s.events }

// Close terminates the stream cleanly.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Send a close message to Deepgram to flush pending audio.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "stream closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to Deepgram.
func (s *stream) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram and dispatches them to the
// events channel.
func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
				// Normal close — exit without surfacing an error event.
			default:
				s.emit(stt.Event{Kind: stt.EventError, Err: fmt.Errorf("deepgram: read: %w", err)})
			}
			return
		}

		ev, ok := parseMessage(msg)
		if !ok {
			continue
		}
		s.emit(ev)
	}
}

// emit delivers an event unless the stream has been closed.
func (s *stream) emit(ev stt.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// parseMessage parses a raw Deepgram WebSocket message into an stt.Event.
// Returns (Event, true) on success, or (zero, false) if the message should be
// ignored (metadata, empty transcript).
func parseMessage(data []byte) (stt.Event, bool) {
	var msg deepgramMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return stt.Event{}, false
	}

	switch msg.Type {
	case "SpeechStarted":
		return stt.Event{Kind: stt.EventSpeechStarted}, true

	case "UtteranceEnd":
		return stt.Event{Kind: stt.EventUtteranceEnd}, true

	case "Results":
		if len(msg.Channel.Alternatives) == 0 {
			return stt.Event{}, false
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return stt.Event{}, false
		}
		return stt.Event{
			Kind:       stt.EventText,
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
		}, true

	default:
		return stt.Event{}, false
	}
}
