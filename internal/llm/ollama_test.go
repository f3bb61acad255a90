package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestOllamaClient_ChatCollectsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "llama3" || !req.Stream {
			t.Errorf("request: %+v", req)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages: %+v", req.Messages)
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != SystemPrompt {
			t.Errorf("system message: %+v", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "Why is the sky blue?" {
			t.Errorf("user message: %+v", req.Messages[1])
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"The sky "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"is blue."},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", 0, zap.NewNop())
	answer, err := c.Chat(context.Background(), "Why is the sky blue?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The sky is blue." {
		t.Errorf("answer: got %q", answer)
	}
}

func TestOllamaClient_ChatSkipsBlankLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"part1"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"content":" part2"},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0, zap.NewNop())
	answer, err := c.Chat(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "part1 part2" {
		t.Errorf("answer: got %q", answer)
	}
}

func TestOllamaClient_ChatStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "nope", 0, zap.NewNop())
	if _, err := c.Chat(context.Background(), "q"); err == nil {
		t.Error("expected error from stream error field")
	}
}

func TestOllamaClient_ChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0, zap.NewNop())
	if _, err := c.Chat(context.Background(), "q"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("What is Go?", []string{"Go is a language.", "Go compiles fast."})
	if !strings.Contains(p, "Go is a language.") || !strings.Contains(p, "Go compiles fast.") {
		t.Error("prompt should contain all context chunks")
	}
	if !strings.Contains(p, "Question: What is Go?") {
		t.Error("prompt should contain the question")
	}
	if !strings.HasSuffix(p, "Answer:") {
		t.Errorf("prompt should end with Answer:, got %q", p[len(p)-20:])
	}
	if !strings.Contains(p, "I don't know from the provided documents.") {
		t.Error("prompt should instruct the refusal phrase")
	}
}
