package llm

import (
	"context"
	"testing"

	"bilisum/pkg/bilisum"
)

type staticProvider struct {
	name string
}

func (p *staticProvider) Summarize(_ context.Context, _ string) (string, error) {
	return p.name, nil
}

func (p *staticProvider) Answer(_ context.Context, _, _ string) (string, error) {
	return p.name, nil
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name      string
		providers map[string]bilisum.LLMProvider
	}{
		{name: "empty map", providers: nil},
		{name: "empty key", providers: map[string]bilisum.LLMProvider{" ": &staticProvider{}}},
		{name: "nil provider", providers: map[string]bilisum.LLMProvider{"openai": nil}},
		{
			name: "duplicate key after trimming",
			providers: map[string]bilisum.LLMProvider{
				"openai":  &staticProvider{},
				"openai ": &staticProvider{},
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewRegistry(testCase.providers); err == nil {
				t.Fatal("expected registry error")
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	openaiProvider := &staticProvider{name: "openai"}
	registry, err := NewRegistry(map[string]bilisum.LLMProvider{
		"openai": openaiProvider,
		"gemini": &staticProvider{name: "gemini"},
	})
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}

	resolved, err := registry.Resolve(" openai ")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != openaiProvider {
		t.Fatal("resolved wrong provider")
	}

	if _, err := registry.Resolve("claude"); err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
	if _, err := registry.Resolve(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
