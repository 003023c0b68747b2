// Command sameer runs the always-listening voice companion server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/avirajsharma-ops/sameer/internal/config"
	"github.com/avirajsharma-ops/sameer/internal/observe"
	"github.com/avirajsharma-ops/sameer/internal/server"
	"github.com/avirajsharma-ops/sameer/internal/session"
	"github.com/avirajsharma-ops/sameer/internal/wake"
	"github.com/avirajsharma-ops/sameer/pkg/memory"
	"github.com/avirajsharma-ops/sameer/pkg/memory/postgres"
	"github.com/avirajsharma-ops/sameer/pkg/provider/embeddings"
	oaembed "github.com/avirajsharma-ops/sameer/pkg/provider/embeddings/openai"
	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
	"github.com/avirajsharma-ops/sameer/pkg/provider/llm/anyllm"
	"github.com/avirajsharma-ops/sameer/pkg/provider/stt"
	"github.com/avirajsharma-ops/sameer/pkg/provider/stt/deepgram"
	"github.com/avirajsharma-ops/sameer/pkg/provider/tts"
	oatts "github.com/avirajsharma-ops/sameer/pkg/provider/tts/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sameer: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sameer: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sameer starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	providers, store, err := buildProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}
	if providers.generator == nil {
		slog.Error("no llm provider configured — set providers.llm in the config")
		return 1
	}

	detector, err := wake.New(wakeConfig(cfg.Wake))
	if err != nil {
		slog.Error("invalid wake configuration", "err", err)
		return 1
	}

	registry := session.NewRegistry(session.Providers{
		Generator:     providers.generator,
		Synthesizer:   providers.synthesizer,
		Embedder:      providers.embedder,
		Transcripts:   providers.transcripts,
		Conversations: providers.conversations,
		Profiles:      providers.profiles,
	}, session.Config{
		Detector: detector,
		Timing: session.Timing{
			Base:           time.Duration(cfg.Silence.BaseMs) * time.Millisecond,
			LatencyPadding: time.Duration(cfg.Silence.LatencyPaddingMs) * time.Millisecond,
			BytesPerSecond: cfg.Silence.BytesPerSecond,
		},
		Proactive: session.ProactiveConfig{
			Interval:       time.Duration(cfg.Proactive.IntervalSeconds) * time.Second,
			GapProbability: cfg.Proactive.GapProbability,
			Cooldown:       time.Duration(cfg.Proactive.CooldownSeconds) * time.Second,
		},
		Metrics: observe.DefaultMetrics(),
		Logger:  logger,
	})

	handler := server.NewHandler(
		registry,
		providers.stt,
		providers.profiles,
		cfg.Server.AuthToken,
		optString(cfg.Providers.STT.Options, "language"),
		logger,
	)
	srv := server.New(cfg.Server, handler, registry, observe.DefaultMetrics(), logger)

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// builtProviders holds every instantiated collaborator. Fields stay nil when
// the corresponding provider is not configured; the session layer degrades
// gracefully around nil providers.
type builtProviders struct {
	stt           stt.Provider
	generator     llm.Generator
	synthesizer   tts.Synthesizer
	embedder      embeddings.Provider
	transcripts   memory.TranscriptStore
	conversations memory.ConversationStore
	profiles      memory.ProfileStore
}

// buildProviders instantiates everything named in cfg. The returned store is
// non-nil only when a Postgres DSN is configured; the caller owns closing it.
func buildProviders(ctx context.Context, cfg *config.Config) (*builtProviders, *postgres.Store, error) {
	ps := &builtProviders{}

	if entry := cfg.Providers.STT; entry.Name != "" {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		p, err := deepgram.New(entry.APIKey, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		}
		ps.stt = p
		slog.Info("provider created", "kind", "stt", "name", entry.Name)
	}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		var backendOpts []anyllmlib.Option
		if entry.APIKey != "" {
			backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		var llmOpts []anyllm.Option
		if prompt := optString(entry.Options, "system_prompt"); prompt != "" {
			llmOpts = append(llmOpts, anyllm.WithSystemPrompt(prompt))
		}
		g, err := anyllm.New(entry.Name, entry.Model, backendOpts, llmOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		ps.generator = g
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	}

	if entry := cfg.Providers.TTS; entry.Name != "" {
		var opts []oatts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oatts.WithBaseURL(entry.BaseURL))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, oatts.WithVoice(voice))
		}
		s, err := oatts.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create tts provider %q: %w", entry.Name, err)
		}
		ps.synthesizer = s
		slog.Info("provider created", "kind", "tts", "name", entry.Name)
	}

	if entry := cfg.Providers.Embeddings; entry.Name != "" {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		e, err := oaembed.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create embeddings provider %q: %w", entry.Name, err)
		}
		ps.embedder = e
		slog.Info("provider created", "kind", "embeddings", "name", entry.Name)
	}

	if dsn := cfg.Memory.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn, cfg.Memory.EmbeddingDimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("connect memory store: %w", err)
		}
		ps.transcripts = store.Transcripts()
		ps.conversations = store.Conversations()
		ps.profiles = store.Profiles()
		slog.Info("memory store connected")
		return ps, store, nil
	}

	slog.Warn("no postgres_dsn configured — transcripts and conversations will not persist")
	return ps, nil, nil
}

// wakeConfig merges the YAML wake section over the built-in defaults. Empty
// lists keep the defaults so a sparse config still wakes on "sameer".
func wakeConfig(wc config.WakeConfig) wake.Config {
	cfg := wake.DefaultConfig()
	if len(wc.Phrases) > 0 {
		cfg.Phrases = wc.Phrases
	}
	if len(wc.ScriptPhrases) > 0 {
		cfg.ScriptPhrases = wc.ScriptPhrases
	}
	if len(wc.PhoneticPatterns) > 0 {
		cfg.PhoneticPatterns = wc.PhoneticPatterns
	}
	if wc.FuzzyThreshold > 0 {
		cfg.FuzzyThreshold = wc.FuzzyThreshold
	}
	return cfg
}

func printStartupSummary(cfg *config.Config) {
	printProvider := func(kind, name, model string) {
		value := name
		if value == "" {
			value = "(not configured)"
		} else if model != "" {
			value = name + " / " + model
		}
		fmt.Printf("  %-12s: %s\n", kind, value)
	}
	fmt.Println("sameer — startup summary")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Memory.PostgresDSN != "" {
		fmt.Println("  Memory      : postgres")
	} else {
		fmt.Println("  Memory      : (disabled)")
	}
	fmt.Printf("  Listen addr : %s\n", cfg.Server.ListenAddr)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// optString extracts a string value from a provider Options map[string]any.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
