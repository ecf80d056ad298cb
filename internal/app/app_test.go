package app

import (
	"context"
	"strings"
	"testing"
)

func newTestApplication(t *testing.T) (*Application, *MockClient) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageRoot = t.TempDir()

	a, err := NewApplication(cfg, true)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	mock := a.Orchestrator.Client.(*MockClient)
	return a, mock
}

func TestApplicationEndToEndTurn(t *testing.T) {
	a, mock := newTestApplication(t)
	mock.Reply = "Hi from the backend."
	mock.Title = "Greeting"

	if ok := a.SubmitAndWait(context.Background(), "hello"); !ok {
		t.Fatalf("submit rejected")
	}

	state := a.Store.Snapshot()
	if len(state.Sessions) != 1 {
		t.Fatalf("sessions = %d", len(state.Sessions))
	}
	if got := state.Sessions[0].Messages[1].Content; got != "Hi from the backend." {
		t.Fatalf("assistant content = %q", got)
	}
	if got := state.Sessions[0].Title; got != "Greeting" {
		t.Fatalf("title = %q", got)
	}
	if state.Busy {
		t.Fatalf("busy after completed turn")
	}
}

func TestApplicationPersistsAcrossRestart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = t.TempDir()

	a, err := NewApplication(cfg, true)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if ok := a.SubmitAndWait(context.Background(), "remember me"); !ok {
		t.Fatalf("submit rejected")
	}
	sessionID := a.Store.Snapshot().Sessions[0].ID

	// A second application over the same storage root sees the session.
	b, err := NewApplication(cfg, true)
	if err != nil {
		t.Fatalf("reopen application: %v", err)
	}
	state := b.Store.Snapshot()
	if len(state.Sessions) != 1 || state.Sessions[0].ID != sessionID {
		t.Fatalf("restart lost the session: %+v", state.Sessions)
	}
	if state.ActiveSessionID != sessionID {
		t.Fatalf("active selection lost: %q", state.ActiveSessionID)
	}
	if !strings.Contains(state.Sessions[0].Messages[0].Content, "remember me") {
		t.Fatalf("message lost: %+v", state.Sessions[0].Messages)
	}
}

func TestApplicationSQLiteBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = t.TempDir()
	cfg.Backend = "sqlite"

	a, err := NewApplication(cfg, true)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if ok := a.SubmitAndWait(context.Background(), "stored in sqlite"); !ok {
		t.Fatalf("submit rejected")
	}

	b, err := NewApplication(cfg, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(b.Store.Snapshot().Sessions); got != 1 {
		t.Fatalf("sessions after reopen = %d", got)
	}
}

func TestApplicationRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = t.TempDir()
	cfg.Backend = "redis"

	if _, err := NewApplication(cfg, true); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
