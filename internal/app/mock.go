package app

import (
	"context"
	"strings"
	"time"
)

// MockClient simulates the generation backend for tests and --mock mode. It
// streams a canned reply word by word and answers title prompts with a short
// summary, without touching the network.
type MockClient struct {
	// Reply overrides the generated answer when non-empty.
	Reply string
	// Thinking is streamed as a thought delta before the answer when the
	// request asked for extended reasoning.
	Thinking string
	// Title overrides the title returned for summarization prompts.
	Title string
	// Delay is inserted between streamed words, for a lifelike demo.
	Delay time.Duration
	// StreamErr/GenerateErr force failures.
	StreamErr   error
	GenerateErr error

	StreamCalls   int
	GenerateCalls int
	LastModel     string
	LastThinking  bool
	LastHistory   []Message
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) GenerateStream(ctx context.Context, history []Message, model string, useThinking bool) (<-chan StreamDelta, <-chan error) {
	c.StreamCalls++
	c.LastModel = model
	c.LastThinking = useThinking
	c.LastHistory = cloneMessages(history)

	contentCh := make(chan StreamDelta, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		if c.StreamErr != nil {
			errCh <- c.StreamErr
			return
		}

		if useThinking && c.Thinking != "" {
			contentCh <- StreamDelta{Text: c.Thinking, Thought: true}
		}

		reply := c.Reply
		if reply == "" {
			reply = c.cannedReply(history)
		}
		for _, word := range strings.SplitAfter(reply, " ") {
			if c.Delay > 0 {
				time.Sleep(c.Delay)
			}
			select {
			case contentCh <- StreamDelta{Text: word}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return contentCh, errCh
}

func (c *MockClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	c.GenerateCalls++
	if c.GenerateErr != nil {
		return "", c.GenerateErr
	}
	if c.Title != "" {
		return c.Title, nil
	}
	return `"Mock conversation"`, nil
}

func (c *MockClient) cannedReply(history []Message) string {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			last = history[i].Content
			break
		}
	}
	switch {
	case strings.Contains(strings.ToLower(last), "hello"), strings.Contains(strings.ToLower(last), "hi"):
		return "Hello! This is the mock backend. Ask me anything and I will echo thoughtfully."
	case strings.Contains(strings.ToLower(last), "code"):
		return "Here is a snippet:\n\n```go\nfmt.Println(\"mock\")\n```\n\nThat is all the mock backend knows."
	default:
		return "You said: " + last + "\n\nThis reply was produced by the mock backend; set GEMINI_API_KEY to talk to the real one."
	}
}
