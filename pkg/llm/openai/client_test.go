package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/docchat/pkg/llm"
)

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Paris is the capital of France."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})
	resp, err := client.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "What is the capital of France?"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Paris is the capital of France." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("expected 20 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate_limit_exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, Model: "test-model"})
	_, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !llm.IsRateLimit(err) {
		t.Errorf("expected rate-limit classification for %v", err)
	}
}

const streamFixture = `data: {"choices":[{"delta":{"role":"assistant","content":""}}]}

data: {"choices":[{"delta":{"content":"Our mascot "}}]}

data: {"choices":[{"delta":{"content":"is a fox."}}]}

data: {"choices":[{"delta":{},"finish_reason":"stop"}]}

data: [DONE]

`

func TestStreamContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(streamFixture))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, Model: "test-model"})
	ch, err := client.Stream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "mascot?"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var text strings.Builder
	for d := range ch {
		if d.Err != nil {
			t.Fatal(d.Err)
		}
		text.WriteString(d.Content)
	}
	if text.String() != "Our mascot is a fox." {
		t.Errorf("unexpected concatenated text %q", text.String())
	}
}

const toolCallFixture = `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"search_documents","arguments":""}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"query\":"}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"mascot\"}"}}]}}]}

data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]

`

func TestStreamToolCallAssembly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(toolCallFixture))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, Model: "test-model"})
	ch, err := client.Stream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "mascot?"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var calls []llm.ToolCall
	for d := range ch {
		if d.Err != nil {
			t.Fatal(d.Err)
		}
		calls = append(calls, d.ToolCalls...)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 assembled tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Function.Name != "search_documents" {
		t.Errorf("unexpected tool call %+v", calls[0])
	}
	if string(calls[0].Function.Arguments) != `{"query":"mascot"}` {
		t.Errorf("unexpected arguments %s", calls[0].Function.Arguments)
	}
}

func TestStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, Model: "test-model"})
	if _, err := client.Stream(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestEmbeddings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	e := NewEmbeddings(EmbeddingsConfig{BaseURL: server.URL})
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
	if e.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", e.Dimension())
	}
}

func TestEmbeddingsOllamaShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[1,0]}`))
	}))
	defer server.Close()

	e := NewEmbeddings(EmbeddingsConfig{BaseURL: server.URL})
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Fatalf("expected 2-dim vector, got %d", len(vec))
	}
}
