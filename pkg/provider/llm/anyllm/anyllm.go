// Package anyllm provides a reply generator backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	g, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
//	g, err := anyllm.NewAnthropic("claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
)

// defaultSystemPrompt is the companion persona used when a request does not
// carry its own system prompt.
const defaultSystemPrompt = "You are Sameer, a warm, curious voice companion. " +
	"Reply conversationally in one to three short sentences suitable for " +
	"text-to-speech. Never use markdown, lists, or emoji."

// Generator implements llm.Generator by wrapping github.com/mozilla-ai/any-llm-go.
type Generator struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// Option is a functional option for configuring a Generator.
type Option func(*Generator)

// WithSystemPrompt overrides the default companion persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(g *Generator) { g.systemPrompt = prompt }
}

// WithTemperature sets the sampling temperature. Default is 0.8.
func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithMaxTokens caps completion length. Default is 200, which keeps replies
// short enough to synthesise without noticeable delay.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// New creates a Generator backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq".
//
// model is the specific model to use (e.g., "gpt-4o-mini").
//
// backendOpts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option, the provider falls back
// to the relevant environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, …).
func New(providerName, model string, backendOpts []anyllmlib.Option, opts ...Option) (*Generator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	g := &Generator{
		backend:      backend,
		model:        model,
		systemPrompt: defaultSystemPrompt,
		temperature:  0.8,
		maxTokens:    200,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// NewOpenAI creates a Generator backed by OpenAI.
// Without backend options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, backendOpts []anyllmlib.Option, opts ...Option) (*Generator, error) {
	return New("openai", model, backendOpts, opts...)
}

// NewAnthropic creates a Generator backed by Anthropic.
// Without backend options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, backendOpts []anyllmlib.Option, opts ...Option) (*Generator, error) {
	return New("anthropic", model, backendOpts, opts...)
}

// NewOllama creates a Generator backed by Ollama (local inference).
// Without backend options, it connects to http://localhost:11434.
func NewOllama(model string, backendOpts []anyllmlib.Option, opts ...Option) (*Generator, error) {
	return New("ollama", model, backendOpts, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq", providerName)
	}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	system := req.SystemPrompt
	if system == "" {
		system = g.systemPrompt
	}

	messages := make([]anyllmlib.Message, 0, len(req.History)+2)
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleSystem,
		Content: system,
	})
	for _, m := range req.History {
		role := anyllmlib.RoleUser
		if m.Role == "assistant" {
			role = anyllmlib.RoleAssistant
		}
		messages = append(messages, anyllmlib.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: req.Input,
	})

	temp := g.temperature
	maxTokens := g.maxTokens
	params := anyllmlib.CompletionParams{
		Model:       g.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if content == "" {
		return "", fmt.Errorf("anyllm: empty completion content")
	}
	return content, nil
}

// Compile-time interface check.
var _ llm.Generator = (*Generator)(nil)
