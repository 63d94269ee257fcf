package provider

import (
	"context"
	"errors"
	"testing"
)

type fakeAdapter struct {
	kind Kind
}

func (f *fakeAdapter) Kind() Kind           { return f.kind }
func (f *fakeAdapter) DefaultModel() string { return "fake-model" }
func (f *fakeAdapter) Call(ctx context.Context, req CallRequest) (string, error) {
	return "{}", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeAdapter{kind: KindOpenAI}, Settings{Model: "m"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	adapter, err := r.Get(KindOpenAI)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if adapter.Kind() != KindOpenAI {
		t.Errorf("Get() returned %s adapter", adapter.Kind())
	}

	settings, err := r.Settings(KindOpenAI)
	if err != nil || settings.Model != "m" {
		t.Errorf("Settings() = %+v, %v", settings, err)
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeAdapter{kind: KindGemini}, Settings{})

	if err := r.Register(&fakeAdapter{kind: KindGemini}, Settings{}); err == nil {
		t.Error("expected error registering the same kind twice")
	}
}

func TestRegistry_RejectsInvalidAdapters(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil, Settings{}); err == nil {
		t.Error("expected error for nil adapter")
	}
	if err := r.Register(&fakeAdapter{kind: KindNone}, Settings{}); err == nil {
		t.Error("expected error for adapter without a kind")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("mistral")

	var unsupported *UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedProviderError, got %T: %v", err, err)
	}
	if unsupported.Provider != "mistral" {
		t.Errorf("Provider = %q", unsupported.Provider)
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(map[Kind]Settings{
		KindOpenAI: {Model: "gpt-custom"},
	}, nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}

	kinds := r.Kinds()
	want := []Kind{KindAnthropic, KindGemini, KindOpenAI}
	if len(kinds) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Kinds()[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	openaiAdapter, _ := r.Get(KindOpenAI)
	if openaiAdapter.DefaultModel() != "gpt-custom" {
		t.Errorf("DefaultModel() = %q, want configured model", openaiAdapter.DefaultModel())
	}
	anthropicAdapter, _ := r.Get(KindAnthropic)
	if anthropicAdapter.DefaultModel() != "claude-sonnet-4-20250514" {
		t.Errorf("DefaultModel() = %q, want shipped default", anthropicAdapter.DefaultModel())
	}
}

func TestNewDefaultRegistry_InvalidSettings(t *testing.T) {
	_, err := NewDefaultRegistry(map[Kind]Settings{
		KindGemini: {Temperature: floatPtr(5)},
	}, nil)
	if err == nil {
		t.Fatal("expected invalid settings to be rejected")
	}
}
