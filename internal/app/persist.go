package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StateKey is the fixed document name the whole client state lives under.
const StateKey = "gemini-chat-state"

// ErrKeyNotFound is returned by KVStore.Get for keys that were never written.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the persistence surface: a single JSON blob per key,
// last-write-wins. Backends: FileKVStore and SQLiteKVStore.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// persistedState is the snapshot subset that survives restarts. Busy and
// SidebarOpen are ephemeral and deliberately absent.
type persistedState struct {
	Sessions        []ChatSession `json:"sessions"`
	ActiveSessionID string        `json:"active_session_id,omitempty"`
	Model           string        `json:"model_type"`
	UseThinking     bool          `json:"use_thinking"`
}

// DefaultStorageRoot picks the data directory for state, logs, and the
// sqlite database. Prefers XDG data dir, then the home directory.
func DefaultStorageRoot() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "integen")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "integen")
	}
	return filepath.Join(os.TempDir(), "integen")
}

// FileKVStore keeps each key as <root>/<key>.json. Writers are serialized:
// persistence runs on whichever goroutine mutated the store, so Set must be
// safe under concurrent calls.
type FileKVStore struct {
	Root string

	mu sync.Mutex
}

func NewFileKVStore(root string) *FileKVStore {
	if strings.TrimSpace(root) == "" {
		root = DefaultStorageRoot()
	}
	return &FileKVStore{Root: root}
}

func (s *FileKVStore) path(key string) string {
	return filepath.Join(s.Root, key+".json")
}

func (s *FileKVStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

func (s *FileKVStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Root, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// LoadState reads the persisted snapshot and rebuilds the app state.
// Missing or malformed data falls back to the empty default state; a parse
// failure is logged and never fatal.
func LoadState(kv KVStore, logger *Logger) AppState {
	state := AppState{Model: DefaultModel, SidebarOpen: true}

	data, err := kv.Get(StateKey)
	if errors.Is(err, ErrKeyNotFound) {
		return state
	}
	if err != nil {
		logger.Error("failed to read saved state", map[string]interface{}{"error": err.Error()})
		return state
	}

	var saved persistedState
	if err := json.Unmarshal(data, &saved); err != nil {
		logger.Error("failed to parse saved state", map[string]interface{}{"error": err.Error()})
		return state
	}

	state.Sessions = saved.Sessions
	state.ActiveSessionID = saved.ActiveSessionID
	if saved.Model != "" {
		state.Model = saved.Model
	}
	state.UseThinking = saved.UseThinking
	normalizeState(&state)
	return state
}

// SaveState writes the persistable subset of a snapshot.
func SaveState(kv KVStore, state AppState) error {
	data, err := json.Marshal(persistedState{
		Sessions:        state.Sessions,
		ActiveSessionID: state.ActiveSessionID,
		Model:           state.Model,
		UseThinking:     state.UseThinking,
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return kv.Set(StateKey, data)
}
