package config

import (
	"strings"
	"testing"
)

func TestLoadFromReaderFull(t *testing.T) {
	t.Parallel()

	const doc = `
server:
  listen_addr: ":9090"
  log_level: debug
  auth_token: secret
providers:
  stt:
    name: deepgram
    api_key: dg-key
    model: nova-2
  llm:
    name: openai
    api_key: oa-key
    model: gpt-4o-mini
  tts:
    name: openai
    api_key: oa-key
  embeddings:
    name: openai
    api_key: oa-key
wake:
  phrases: ["sameer", "buddy"]
  fuzzy_threshold: 0.75
silence:
  base_ms: 1500
  latency_padding_ms: 300
  bytes_per_second: 48000
proactive:
  interval_seconds: 20
  gap_probability: 0.25
  cooldown_seconds: 90
memory:
  postgres_dsn: postgres://localhost/sameer
  embedding_dimensions: 1536
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Providers.STT.Model != "nova-2" {
		t.Errorf("STT model = %q, want nova-2", cfg.Providers.STT.Model)
	}
	if got := cfg.Wake.FuzzyThreshold; got != 0.75 {
		t.Errorf("FuzzyThreshold = %v, want 0.75", got)
	}
	if cfg.Silence.BaseMs != 1500 {
		t.Errorf("BaseMs = %d, want 1500", cfg.Silence.BaseMs)
	}
	if cfg.Proactive.GapProbability != 0.25 {
		t.Errorf("GapProbability = %v, want 0.25", cfg.Proactive.GapProbability)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(`server: {auth_token: t}`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Silence.BaseMs != DefaultBaseSilenceMs {
		t.Errorf("BaseMs = %d, want %d", cfg.Silence.BaseMs, DefaultBaseSilenceMs)
	}
	if cfg.Silence.BytesPerSecond != DefaultBytesPerSecond {
		t.Errorf("BytesPerSecond = %d, want %d", cfg.Silence.BytesPerSecond, DefaultBytesPerSecond)
	}
	if cfg.Proactive.IntervalSeconds != DefaultProactiveSeconds {
		t.Errorf("IntervalSeconds = %d, want %d", cfg.Proactive.IntervalSeconds, DefaultProactiveSeconds)
	}
	if cfg.Proactive.GapProbability != DefaultGapProbability {
		t.Errorf("GapProbability = %v, want %v", cfg.Proactive.GapProbability, DefaultGapProbability)
	}
	if cfg.Proactive.CooldownSeconds != DefaultCooldownSeconds {
		t.Errorf("CooldownSeconds = %d, want %d", cfg.Proactive.CooldownSeconds, DefaultCooldownSeconds)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`server: {listen_adr: ":8080"}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
	}{
		{"bad log level", `server: {log_level: verbose}`},
		{"tls missing key", "server:\n  tls:\n    cert_file: /tmp/cert.pem"},
		{"threshold out of range", `wake: {fuzzy_threshold: 1.5}`},
		{"negative base silence", `silence: {base_ms: -1}`},
		{"probability out of range", `proactive: {gap_probability: 2.0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(tc.doc)); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}
