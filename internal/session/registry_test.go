package session

import (
	"context"
	"testing"
	"time"

	llmmock "github.com/avirajsharma-ops/sameer/pkg/provider/llm/mock"
)

func newTestRegistry() *Registry {
	return NewRegistry(
		Providers{Generator: &llmmock.Generator{Reply: "ok"}},
		Config{Timing: Timing{Base: time.Hour, BytesPerSecond: 48000}},
	)
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	sink := &recordSink{}

	s := r.Create(context.Background(), "user-1", sink)
	if s.ID == "" {
		t.Fatal("session created without id")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	got, ok := r.Get(s.ID)
	if !ok || got != s {
		t.Error("Get did not return the created session")
	}

	r.Remove(s.ID)
	if r.Len() != 0 {
		t.Errorf("Len after remove = %d, want 0", r.Len())
	}
	if _, ok := r.Get(s.ID); ok {
		t.Error("removed session still retrievable")
	}

	// Removing again must not panic.
	r.Remove(s.ID)
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	s1 := r.Create(context.Background(), "user-1", &recordSink{})
	s2 := r.Create(context.Background(), "user-2", &recordSink{})

	if s1.ID == s2.ID {
		t.Fatal("sessions share an id")
	}

	s1.StartConversation("")
	if got := s2.Mode(); got != ModeMonitoring {
		t.Errorf("s2 mode = %q, want monitoring", got)
	}

	r.Remove(s1.ID)
	if _, ok := r.Get(s2.ID); !ok {
		t.Error("removing s1 took s2 with it")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	r.Create(context.Background(), "user-1", &recordSink{})
	r.Create(context.Background(), "user-2", &recordSink{})

	r.CloseAll()
	if r.Len() != 0 {
		t.Errorf("Len after CloseAll = %d, want 0", r.Len())
	}
	// Idempotent.
	r.CloseAll()
}
