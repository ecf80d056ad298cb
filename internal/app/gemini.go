package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StreamDelta is one increment of a streamed response. Thought deltas carry
// reasoning summaries and are kept separate from the answer text.
type StreamDelta struct {
	Text    string
	Thought bool
}

// Client is the generation backend the orchestrator talks to: a streaming
// call for chat turns and a plain call for short one-shot prompts (titles).
type Client interface {
	// GenerateStream issues a streaming generation request. The first channel
	// yields incremental deltas; the second yields at most one error and both
	// are closed when the stream ends.
	GenerateStream(ctx context.Context, history []Message, model string, useThinking bool) (<-chan StreamDelta, <-chan error)
	Generate(ctx context.Context, model, prompt string) (string, error)
}

const systemInstruction = "You are integen aichat, a world-class AI specialized in providing high-quality answers to any question. You focus on being clear, helpful, and engaging in conversation. While you can understand technical topics, your primary goal is to be a brilliant conversational partner and question-answerer. Use markdown for your responses."

const thinkingBudgetTokens = 4096

// GeminiClient talks to the Gemini generateContent API over plain HTTP.
type GeminiClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Logger  *Logger
}

func NewGeminiClient(apiKey, baseURL string, logger *Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	return &GeminiClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Logger:  logger,
	}
}

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

type geminiGenerationConfig struct {
	ThinkingConfig *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// buildContents converts local history to wire format. The assistant role is
// called "model" on the wire, and blank messages are dropped to avoid API
// errors; they stay in local history untouched.
func buildContents(history []Message) []geminiContent {
	out := make([]geminiContent, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	return out
}

func (c *GeminiClient) buildRequest(history []Message, model string, useThinking bool) geminiRequest {
	req := geminiRequest{
		Contents: buildContents(history),
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		},
	}
	// The thinking budget is only valid for models that accept it; for the
	// rest the toggle is a no-op.
	if useThinking && SupportsThinking(model) {
		req.GenerationConfig = &geminiGenerationConfig{
			ThinkingConfig: &geminiThinkingConfig{
				ThinkingBudget:  thinkingBudgetTokens,
				IncludeThoughts: true,
			},
		}
	}
	return req
}

// GenerateStream streams a chat turn via streamGenerateContent with SSE.
func (c *GeminiClient) GenerateStream(ctx context.Context, history []Message, model string, useThinking bool) (<-chan StreamDelta, <-chan error) {
	contentCh := make(chan StreamDelta, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		if c.APIKey == "" {
			errCh <- errors.New("API key not configured (set GEMINI_API_KEY)")
			return
		}

		start := time.Now()
		payload, err := json.Marshal(c.buildRequest(history, model, useThinking))
		if err != nil {
			errCh <- fmt.Errorf("marshal request: %w", err)
			return
		}

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.BaseURL, model, c.APIKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			errCh <- fmt.Errorf("create request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			// The wrapped url.Error carries the key in the query string.
			errCh <- fmt.Errorf("request failed: %s", RedactSecrets(err.Error(), c.APIKey))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errCh <- fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}

			var chunk geminiResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				errCh <- fmt.Errorf("API error: %s", chunk.Error.Message)
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			for _, part := range chunk.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case contentCh <- StreamDelta{Text: part.Text, Thought: part.Thought}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("stream error: %w", err)
			return
		}
		c.Logger.Info("gemini stream completed", map[string]interface{}{
			"model":       model,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	return contentCh, errCh
}

// Generate issues a single non-streaming request and returns the full text.
// Used by the title summarizer.
func (c *GeminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("API key not configured (set GEMINI_API_KEY)")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %s", RedactSecrets(err.Error(), c.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return "", errors.New("no completion returned")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		if !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
