// Package config provides the configuration schema and loader for the
// Sameer voice-companion server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Wake      WakeConfig      `yaml:"wake"`
	Silence   SilenceConfig   `yaml:"silence"`
	Proactive ProactiveConfig `yaml:"proactive"`
	Memory    MemoryConfig    `yaml:"memory"`
}

// ServerConfig holds network, auth, and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AuthToken is the shared token clients must present when connecting.
	// When empty, connections are accepted without authentication.
	AuthToken string `yaml:"auth_token"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT        ProviderEntry `yaml:"stt"`
	LLM        ProviderEntry `yaml:"llm"`
	TTS        ProviderEntry `yaml:"tts"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "deepgram", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// WakeConfig tunes the wake-phrase detector. The phrase lists and threshold
// are a tuning surface; empty lists fall back to the built-in defaults.
type WakeConfig struct {
	// Phrases are canonical wake phrases and known misspellings.
	Phrases []string `yaml:"phrases"`

	// ScriptPhrases are wake-phrase equivalents in Devanagari.
	ScriptPhrases []string `yaml:"script_phrases"`

	// PhoneticPatterns are regular expressions tolerating STT mishearings.
	PhoneticPatterns []string `yaml:"phonetic_patterns"`

	// FuzzyThreshold is the minimum normalised Levenshtein similarity for a
	// fuzzy token match. Zero means the built-in default (0.70).
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// SilenceConfig tunes the conversation silence timer. The delay for a spoken
// reply is estimatedPlaybackMs + latency_padding_ms + base_ms.
type SilenceConfig struct {
	// BaseMs is the quiet window after reply playback before the session
	// drops back to monitoring.
	BaseMs int `yaml:"base_ms"`

	// LatencyPaddingMs absorbs network delay between server send and client
	// playback start.
	LatencyPaddingMs int `yaml:"latency_padding_ms"`

	// BytesPerSecond converts reply-audio byte length into an estimated
	// playback duration. Must match the synthesizer's output format.
	BytesPerSecond int `yaml:"bytes_per_second"`
}

// ProactiveConfig tunes the proactive question scheduler.
type ProactiveConfig struct {
	// IntervalSeconds is the per-session tick interval.
	IntervalSeconds int `yaml:"interval_seconds"`

	// GapProbability is the per-tick chance of queueing a profile-gap
	// question when no interesting speech was observed. Range [0, 1].
	GapProbability float64 `yaml:"gap_probability"`

	// CooldownSeconds suppresses further questions after one is asked.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// MemoryConfig holds settings for the persistence layer.
type MemoryConfig struct {
	// PostgresDSN is the PostgreSQL connection string for the pgvector
	// memory store. Empty disables persistence.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions is the vector dimension for the profile facts
	// embedding column. Must match the model in Providers.Embeddings.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}
