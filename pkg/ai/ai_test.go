package ai

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func mockClient(cfg ClientConfig) (*Client, *MockAdapter) {
	mock := NewMockAdapter()
	return NewClient(map[string]Adapter{"mock": mock}, cfg), mock
}

func TestGenerateUsesRoute(t *testing.T) {
	client, _ := mockClient(ClientConfig{
		Routes:  map[string]Route{"narrative": {Adapter: "mock", Model: "mock-1"}},
		Default: Route{Adapter: "mock", Model: "mock-1"},
	})

	text, err := client.Generate(context.Background(), "narrative", "describe the turn")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(text, "describe the turn") {
		t.Fatalf("unexpected response %q", text)
	}
}

func TestGenerateFallsBackToDefaultAdapter(t *testing.T) {
	// The narrative route targets an adapter that never got registered;
	// the default adapter picks up the task.
	client, _ := mockClient(DefaultClientConfig())

	text, err := client.Generate(context.Background(), "narrative", "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text == "" {
		t.Fatal("empty response from fallback adapter")
	}
}

func TestGenerateUnknownTaskUsesDefaultRoute(t *testing.T) {
	client, _ := mockClient(DefaultClientConfig())

	if _, err := client.Generate(context.Background(), "unrouted_task", "prompt"); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateNoAdapters(t *testing.T) {
	client := NewClient(map[string]Adapter{}, DefaultClientConfig())

	if _, err := client.Generate(context.Background(), "narrative", "prompt"); err == nil {
		t.Fatal("expected error with no adapters")
	}
}

func TestGeneratePropagatesAdapterError(t *testing.T) {
	client, mock := mockClient(DefaultClientConfig())
	mock.Err = errors.New("quota exceeded")

	if _, err := client.Generate(context.Background(), "narrative", "prompt"); !errors.Is(err, mock.Err) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

func TestMockResponsesByPrompt(t *testing.T) {
	mock := NewMockAdapterWithResponses(map[string]string{"ping": "pong"}, "fallback")

	got, err := mock.Generate(context.Background(), "mock-1", "ping")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "pong" {
		t.Fatalf("got %q, want pong", got)
	}

	got, err = mock.Generate(context.Background(), "mock-1", "other")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(got, "fallback") {
		t.Fatalf("default response not used: %q", got)
	}
}

func TestEmbedDeterministic(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.EmbedAdapter = "mock"
	client, _ := mockClient(cfg)

	a, err := client.Embed(context.Background(), "sp-fern")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := client.Embed(context.Background(), "sp-fern")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("embedding not deterministic")
	}
	if len(a) != 8 {
		t.Fatalf("embedding has %d dims, want 8", len(a))
	}

	other, err := client.Embed(context.Background(), "sp-vole")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if reflect.DeepEqual(a, other) {
		t.Fatal("different texts produced identical embeddings")
	}
}

func TestEmbedFallsBackToDefault(t *testing.T) {
	// EmbedAdapter targets openai, which is not registered; the default
	// mock adapter supports embeddings and takes over.
	client, _ := mockClient(DefaultClientConfig())

	vec, err := client.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("empty embedding")
	}
}

func TestClientTimeoutDefaulted(t *testing.T) {
	client := NewClient(map[string]Adapter{"mock": NewMockAdapter()}, ClientConfig{
		Default: Route{Adapter: "mock"},
	})
	if client.cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s default", client.cfg.Timeout)
	}
}

func TestHasAdapter(t *testing.T) {
	client, _ := mockClient(DefaultClientConfig())

	if !client.HasAdapter("mock") {
		t.Fatal("mock adapter not reported")
	}
	if client.HasAdapter("anthropic") {
		t.Fatal("unregistered adapter reported present")
	}
}
