package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func geminiReply(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestGeminiClientFallsBackToWorkingModel(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if strings.Contains(r.URL.Path, "broken-model") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiReply("hello from backup")))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", []string{"broken-model", "backup-model"}, zap.NewNop())

	reply, err := client.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "hello from backup" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	// La segunda llamada va directo al modelo cacheado.
	before := atomic.LoadInt32(&calls)
	if _, err := client.Generate(context.Background(), "hi again"); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if atomic.LoadInt32(&calls) != before+1 {
		t.Fatalf("expected exactly one request with cached model")
	}
}

func TestGeminiClientDropsCacheOnFailure(t *testing.T) {
	var failNext atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failNext.Load() && strings.Contains(r.URL.Path, "primary") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiReply("ok")))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", []string{"primary", "secondary"}, zap.NewNop())

	if _, err := client.Generate(context.Background(), "hi"); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	failNext.Store(true)
	reply, err := client.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected fallback after cached model failure: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestGeminiClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", []string{"only-model"}, zap.NewNop())

	_, err := client.Generate(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected api error surfaced, got %v", err)
	}
}

func TestGeminiClientRequiresAPIKey(t *testing.T) {
	client := NewGeminiClient("http://localhost", "", nil, zap.NewNop())
	if _, err := client.Generate(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestGeminiClientEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", []string{"only-model"}, zap.NewNop())

	_, err := client.Generate(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected empty-response error, got %v", err)
	}
}
