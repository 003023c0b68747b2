package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [LoadFromReader] for fields left unset.
const (
	DefaultListenAddr       = ":8080"
	DefaultBaseSilenceMs    = 2000
	DefaultLatencyPadMs     = 500
	DefaultBytesPerSecond   = 48000 // 24 kHz mono 16-bit PCM
	DefaultProactiveSeconds = 30
	DefaultGapProbability   = 0.30
	DefaultCooldownSeconds  = 120
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"deepgram"},
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"tts":        {"openai"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Silence.BaseMs == 0 {
		cfg.Silence.BaseMs = DefaultBaseSilenceMs
	}
	if cfg.Silence.LatencyPaddingMs == 0 {
		cfg.Silence.LatencyPaddingMs = DefaultLatencyPadMs
	}
	if cfg.Silence.BytesPerSecond == 0 {
		cfg.Silence.BytesPerSecond = DefaultBytesPerSecond
	}
	if cfg.Proactive.IntervalSeconds == 0 {
		cfg.Proactive.IntervalSeconds = DefaultProactiveSeconds
	}
	if cfg.Proactive.GapProbability == 0 {
		cfg.Proactive.GapProbability = DefaultGapProbability
	}
	if cfg.Proactive.CooldownSeconds == 0 {
		cfg.Proactive.CooldownSeconds = DefaultCooldownSeconds
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Wake.FuzzyThreshold < 0 || cfg.Wake.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("wake.fuzzy_threshold %.2f is out of range [0, 1]", cfg.Wake.FuzzyThreshold))
	}

	if cfg.Silence.BaseMs < 0 {
		errs = append(errs, fmt.Errorf("silence.base_ms %d must not be negative", cfg.Silence.BaseMs))
	}
	if cfg.Silence.LatencyPaddingMs < 0 {
		errs = append(errs, fmt.Errorf("silence.latency_padding_ms %d must not be negative", cfg.Silence.LatencyPaddingMs))
	}
	if cfg.Silence.BytesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("silence.bytes_per_second %d must be positive", cfg.Silence.BytesPerSecond))
	}

	if cfg.Proactive.IntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("proactive.interval_seconds %d must not be negative", cfg.Proactive.IntervalSeconds))
	}
	if cfg.Proactive.GapProbability < 0 || cfg.Proactive.GapProbability > 1 {
		errs = append(errs, fmt.Errorf("proactive.gap_probability %.2f is out of range [0, 1]", cfg.Proactive.GapProbability))
	}
	if cfg.Proactive.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("proactive.cooldown_seconds %d must not be negative", cfg.Proactive.CooldownSeconds))
	}

	if cfg.Server.AuthToken == "" {
		slog.Warn("server.auth_token is empty; connections will be accepted without authentication")
	}
	if cfg.Providers.STT.Name != "" && cfg.Providers.STT.APIKey == "" {
		slog.Warn("providers.stt has no api_key; the transcription stream will fail to connect")
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; transcripts and profiles will not be persisted")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
