// Package openai provides a speech synthesizer backed by the OpenAI audio API.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/avirajsharma-ops/sameer/pkg/provider/tts"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = oai.SpeechModelGPT4oMiniTTS

// DefaultVoice is the default OpenAI voice. The API accepts voice names
// beyond the SDK's enumerated constants, "nova" among them.
const DefaultVoice = oai.AudioSpeechNewParamsVoice("nova")

// Ensure Synthesizer implements the tts.Synthesizer interface.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesizer implements tts.Synthesizer using the OpenAI audio/speech API.
// Audio is requested in raw PCM format (24 kHz mono 16-bit), which matches
// the tts package's shared output format without transcoding.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  oai.AudioSpeechNewParamsVoice
	speed  float64
}

// config holds optional configuration for the synthesizer.
type config struct {
	baseURL string
	voice   string
	speed   float64
	timeout time.Duration
}

// Option is a functional option for Synthesizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithVoice selects the voice (e.g., "nova", "alloy", "shimmer").
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = voice
	}
}

// WithSpeed adjusts the speaking rate in the range [0.25, 4.0]. 1.0 is default.
func WithSpeed(speed float64) Option {
	return func(c *config) {
		c.speed = speed
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI Synthesizer.
// If model is empty, DefaultModel is used.
func New(apiKey string, model string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	voice := DefaultVoice
	if cfg.voice != "" {
		voice = oai.AudioSpeechNewParamsVoice(cfg.voice)
	}

	return &Synthesizer{
		client: oai.NewClient(reqOpts...),
		model:  model,
		voice:  voice,
		speed:  cfg.speed,
	}, nil
}

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	params := oai.AudioSpeechNewParams{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if s.speed > 0 {
		params.Speed = oai.Float(s.speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai tts: empty audio response")
	}
	return audio, nil
}
