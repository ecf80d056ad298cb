package app

import (
	"context"
	"fmt"
	"strings"
)

// Orchestrator drives one in-flight generation request, feeding cumulative
// text back into the store. It never returns an error: every failure ends as
// an in-transcript error line via FinalizeStream.
type Orchestrator struct {
	Store  *Store
	Client Client
	Logger *Logger
}

func NewOrchestrator(store *Store, client Client, logger *Logger) *Orchestrator {
	return &Orchestrator{Store: store, Client: client, Logger: logger}
}

// Send runs a submitted turn to completion: stream, finalize, and (on a
// session's first successful exchange) summarize a title. Callers run it on
// its own goroutine; all state changes flow through the store.
func (o *Orchestrator) Send(ctx context.Context, sub Submission) {
	model := ResolveModel(sub.Model)
	if model != sub.Model {
		// Non-Gemini entries in the selector are display-only; requests are
		// made with the default model instead of failing the selection.
		o.Logger.Info("substituting unsupported model", map[string]interface{}{
			"selected": sub.Model,
			"actual":   model,
		})
	}

	deltaCh, errCh := o.Client.GenerateStream(ctx, sub.History, model, sub.UseThinking)

	var full, thoughts strings.Builder
	for delta := range deltaCh {
		if delta.Thought {
			thoughts.WriteString(delta.Text)
			o.Store.ApplyStreamedThinking(sub.SessionID, sub.AssistantID, thoughts.String())
			continue
		}
		full.WriteString(delta.Text)
		o.Store.ApplyStreamedContent(sub.SessionID, sub.AssistantID, full.String())
	}

	if err := <-errCh; err != nil {
		o.Logger.Error("generation failed", map[string]interface{}{
			"session": sub.SessionID,
			"model":   model,
			"error":   err.Error(),
		})
		o.Store.FinalizeStream(sub.SessionID, sub.AssistantID, err)
		return
	}

	if full.Len() == 0 {
		// Soft success: no error is shown, the message just stays empty.
		o.Logger.Warn("backend returned an empty response", map[string]interface{}{
			"session": sub.SessionID,
			"model":   model,
		})
	}
	o.Store.FinalizeStream(sub.SessionID, sub.AssistantID, nil)

	if sub.FirstTurn {
		o.summarizeTitle(ctx, sub)
	}
}

// summarizeTitle asks the backend for a short session title, once, after the
// first exchange completed without error. Failures fall back to a fixed
// title and are never surfaced.
func (o *Orchestrator) summarizeTitle(ctx context.Context, sub Submission) {
	prompt := fmt.Sprintf("Summarize the following chat message into a very short title (max 5 words): %q", sub.UserText)
	title, err := o.Client.Generate(ctx, DefaultModel, prompt)
	if err != nil {
		o.Logger.Info("title generation failed", map[string]interface{}{
			"session": sub.SessionID,
			"error":   err.Error(),
		})
		o.Store.SetTitle(sub.SessionID, "New Chat")
		return
	}
	title = stripQuotes(strings.TrimSpace(title))
	if title == "" {
		title = "New Conversation"
	}
	o.Store.SetTitle(sub.SessionID, title)
}

func stripQuotes(s string) string {
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}
