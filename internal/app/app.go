package app

import (
	"context"
	"fmt"
)

// Application is the composition root: it owns the store, the backend
// client, the orchestrator, and the persistence wiring.
type Application struct {
	Config       Config
	Logger       *Logger
	Store        *Store
	Orchestrator *Orchestrator
	KV           KVStore
}

func NewApplication(cfg Config, mockMode bool) (*Application, error) {
	logger := NewFileLogger(cfg.StorageRoot)

	var kv KVStore
	switch cfg.Backend {
	case "", "file":
		kv = NewFileKVStore(cfg.StorageRoot)
	case "sqlite":
		store, err := NewSQLiteKVStore(cfg.StorageRoot)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		kv = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	state := LoadState(kv, logger)

	store := NewStore(state)

	var client Client
	if mockMode {
		client = NewMockClient()
	} else {
		client = NewGeminiClient(cfg.APIKey, cfg.BaseURL, logger)
	}

	a := &Application{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Orchestrator: NewOrchestrator(store, client, logger),
		KV:           kv,
	}

	// Persistence rides on store events: every change to session data or
	// settings lands as a fresh snapshot, last write wins.
	store.Subscribe(func(ev Event) {
		if ev != EventSessionsChanged {
			return
		}
		if err := SaveState(kv, store.Snapshot()); err != nil {
			logger.Error("failed to persist state", map[string]interface{}{"error": err.Error()})
		}
	})

	return a, nil
}

// Submit records a user turn and, when accepted, runs the generation request
// on its own goroutine. Returns false when the input was blank or a request
// is already in flight.
func (a *Application) Submit(ctx context.Context, text string) bool {
	sub, ok := a.Store.SubmitUserMessage(text)
	if !ok {
		return false
	}
	go a.Orchestrator.Send(ctx, sub)
	return true
}

// SubmitAndWait runs the whole turn synchronously. Used by the plain REPL
// and by tests.
func (a *Application) SubmitAndWait(ctx context.Context, text string) bool {
	sub, ok := a.Store.SubmitUserMessage(text)
	if !ok {
		return false
	}
	a.Orchestrator.Send(ctx, sub)
	return true
}
