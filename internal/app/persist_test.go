package app

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func testState() AppState {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return AppState{
		Sessions: []ChatSession{
			{
				ID:    "s2",
				Title: "Silk Road history",
				Messages: []Message{
					{ID: "m1", Role: RoleUser, Content: "What is the Silk Road?", CreatedAt: now},
					{ID: "m2", Role: RoleAssistant, Content: "A network of trade routes.", CreatedAt: now},
				},
				CreatedAt: now,
			},
			{ID: "s1", Title: "New Conversation", CreatedAt: now.Add(-time.Hour)},
		},
		ActiveSessionID: "s2",
		Model:           "gemini-3-pro-preview",
		UseThinking:     true,
		// Ephemeral flags, must not survive the round trip.
		Busy:        true,
		SidebarOpen: false,
	}
}

func TestStateRoundTrip(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	logger := NewLogger(io.Discard)

	if err := SaveState(kv, testState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded := LoadState(kv, logger)

	want := testState()
	if len(loaded.Sessions) != len(want.Sessions) {
		t.Fatalf("sessions = %d, want %d", len(loaded.Sessions), len(want.Sessions))
	}
	for i := range want.Sessions {
		if loaded.Sessions[i].ID != want.Sessions[i].ID || loaded.Sessions[i].Title != want.Sessions[i].Title {
			t.Fatalf("session %d = %+v", i, loaded.Sessions[i])
		}
		if len(loaded.Sessions[i].Messages) != len(want.Sessions[i].Messages) {
			t.Fatalf("session %d messages = %d", i, len(loaded.Sessions[i].Messages))
		}
	}
	if loaded.Sessions[0].Messages[1].Content != "A network of trade routes." {
		t.Fatalf("message content lost: %q", loaded.Sessions[0].Messages[1].Content)
	}
	if loaded.ActiveSessionID != "s2" {
		t.Fatalf("active = %q", loaded.ActiveSessionID)
	}
	if loaded.Model != "gemini-3-pro-preview" || !loaded.UseThinking {
		t.Fatalf("settings lost: model=%q thinking=%v", loaded.Model, loaded.UseThinking)
	}
	if loaded.Busy {
		t.Fatalf("ephemeral busy flag was persisted")
	}
	if !loaded.SidebarOpen {
		t.Fatalf("sidebar flag should reset to its default, not persist")
	}
}

func TestLoadStateMissingFallsBackToDefaults(t *testing.T) {
	state := LoadState(NewFileKVStore(t.TempDir()), NewLogger(io.Discard))
	if len(state.Sessions) != 0 || state.ActiveSessionID != "" {
		t.Fatalf("expected empty state, got %+v", state)
	}
	if state.Model != DefaultModel || state.UseThinking {
		t.Fatalf("defaults wrong: model=%q thinking=%v", state.Model, state.UseThinking)
	}
}

func TestLoadStateMalformedFallsBackToDefaults(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	if err := kv.Set(StateKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	state := LoadState(kv, NewLogger(io.Discard))
	if len(state.Sessions) != 0 || state.Model != DefaultModel {
		t.Fatalf("malformed state not replaced by defaults: %+v", state)
	}
}

func TestLoadStateRepairsInconsistencies(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	bad := AppState{
		Sessions: []ChatSession{
			{ID: "a", Messages: []Message{{ID: "m", Role: RoleAssistant, Content: "cut off", Streaming: true}}},
		},
		ActiveSessionID: "gone",
		Model:           "gemini-3-flash-preview",
	}
	if err := SaveState(kv, bad); err != nil {
		t.Fatalf("save: %v", err)
	}

	state := LoadState(kv, NewLogger(io.Discard))
	if state.ActiveSessionID != "a" {
		t.Fatalf("dangling active id not repaired: %q", state.ActiveSessionID)
	}
	if state.Sessions[0].Messages[0].Streaming {
		t.Fatalf("stale streaming flag not cleared")
	}
}

func TestFileKVStoreMissingKey(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	if _, err := kv.Get("absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestFileKVStoreOverwrite(t *testing.T) {
	kv := NewFileKVStore(t.TempDir())
	if err := kv.Set("k", []byte("one")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set("k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := kv.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("value = %q, want last write", got)
	}
}

func TestFileKVStoreConcurrentSet(t *testing.T) {
	// Persistence runs on whichever goroutine mutated the store, so Set is
	// hit concurrently: streamed chunks from the orchestrator goroutine,
	// user actions from the UI goroutine.
	kv := NewFileKVStore(t.TempDir())
	short := []byte(`{"n":1}`)
	long := []byte(`{"n":2,"padding":"` + strings.Repeat("x", 4096) + `"}`)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, payload := range [][]byte{short, long} {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := kv.Set(StateKey, p); err != nil {
					errs <- err
					return
				}
			}
		}(payload)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		t.Fatalf("concurrent set: %v", err)
	}

	got, err := kv.Get(StateKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(short) && string(got) != string(long) {
		t.Fatalf("stored value is neither complete write: %d bytes", len(got))
	}
}

func TestSQLiteKVStoreRoundTrip(t *testing.T) {
	kv, err := NewSQLiteKVStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()

	if _, err := kv.Get("absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
	if err := kv.Set(StateKey, []byte(`{"sessions":[]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(StateKey, []byte(`{"sessions":null}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := kv.Get(StateKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"sessions":null}` {
		t.Fatalf("value = %q", got)
	}
}
