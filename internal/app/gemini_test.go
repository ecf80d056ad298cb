package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseChunk(text string) string {
	payload, _ := json.Marshal(geminiResponse{
		Candidates: []struct {
			Content geminiContent `json:"content"`
		}{
			{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: text}}}},
		},
	})
	return "data: " + string(payload) + "\n\n"
}

func TestGenerateStreamDeliversDeltas(t *testing.T) {
	var gotPath string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hel"))
		fmt.Fprint(w, sseChunk("lo th"))
		fmt.Fprint(w, sseChunk("ere"))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", srv.URL, nil)
	history := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "earlier reply"},
		{Role: RoleAssistant, Content: "   "}, // blank, must be filtered
		{Role: RoleUser, Content: "hello there?"},
	}

	contentCh, errCh := client.GenerateStream(context.Background(), history, "gemini-3-flash-preview", false)
	var full strings.Builder
	for delta := range contentCh {
		if !delta.Thought {
			full.WriteString(delta.Text)
		}
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if full.String() != "Hello there" {
		t.Fatalf("accumulated = %q", full.String())
	}
	if !strings.Contains(gotPath, "gemini-3-flash-preview:streamGenerateContent") {
		t.Fatalf("path = %q", gotPath)
	}
	if len(gotBody.Contents) != 3 {
		t.Fatalf("outgoing contents = %d, want blank filtered out", len(gotBody.Contents))
	}
	if gotBody.Contents[1].Role != "model" {
		t.Fatalf("assistant role not mapped to model: %q", gotBody.Contents[1].Role)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text == "" {
		t.Fatalf("system instruction missing")
	}
}

func TestGenerateStreamThinkingConfig(t *testing.T) {
	client := NewGeminiClient("k", "", nil)

	req := client.buildRequest(nil, "gemini-3-flash-preview", true)
	if req.GenerationConfig == nil || req.GenerationConfig.ThinkingConfig == nil {
		t.Fatalf("thinking config missing for supported model")
	}
	if got := req.GenerationConfig.ThinkingConfig.ThinkingBudget; got != thinkingBudgetTokens {
		t.Fatalf("budget = %d", got)
	}
	if !req.GenerationConfig.ThinkingConfig.IncludeThoughts {
		t.Fatalf("thought summaries not requested")
	}

	// Toggle on but the model family does not support it: silent no-op.
	req = client.buildRequest(nil, "gemini-1.5-pro", true)
	if req.GenerationConfig != nil {
		t.Fatalf("thinking forwarded for unsupported model")
	}

	req = client.buildRequest(nil, "gemini-3-flash-preview", false)
	if req.GenerationConfig != nil {
		t.Fatalf("thinking forwarded while toggled off")
	}
}

func TestGenerateStreamMissingAPIKey(t *testing.T) {
	client := NewGeminiClient("", "", nil)

	contentCh, errCh := client.GenerateStream(context.Background(), nil, DefaultModel, false)
	for range contentCh {
	}
	err := <-errCh
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateStreamAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"invalid request"}}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("k", srv.URL, nil)
	contentCh, errCh := client.GenerateStream(context.Background(), nil, DefaultModel, false)
	for range contentCh {
	}
	err := <-errCh
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateReturnsFullText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Silk Road Overview"}]}}]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("k", srv.URL, nil)
	got, err := client.Generate(context.Background(), DefaultModel, "summarize this")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Silk Road Overview" {
		t.Fatalf("text = %q", got)
	}
}

func TestGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("k", srv.URL, nil)
	if _, err := client.Generate(context.Background(), DefaultModel, "p"); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}
