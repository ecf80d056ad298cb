package app

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes what changed after a store transition. Subscribers use it
// to decide whether to persist (sessions/settings changed) or to scroll the
// transcript (messages changed).
type Event int

const (
	// EventSessionsChanged fires when persisted data changed: sessions,
	// titles, message content, selection, model, or the thinking toggle.
	EventSessionsChanged Event = iota
	// EventTranscriptChanged fires when the active message list changed and
	// the presentation layer should scroll to the bottom.
	EventTranscriptChanged
)

// Submission is what SubmitUserMessage hands to the streaming orchestrator:
// the target message ids plus the outgoing history and the settings captured
// at submit time.
type Submission struct {
	SessionID   string
	AssistantID string
	UserText    string
	History     []Message // prior messages plus the new user message
	FirstTurn   bool      // session had no messages before this submit
	Model       string
	UseThinking bool
}

// Store is the single source of truth for sessions and global flags. All
// mutation goes through named transitions; each transition notifies
// subscribers after releasing the lock, so subscribers may call Snapshot.
type Store struct {
	mu    sync.Mutex
	state AppState
	subs  []func(Event)
}

func NewStore(initial AppState) *Store {
	normalizeState(&initial)
	return &Store{state: initial}
}

// normalizeState repairs a loaded snapshot: the active id must reference an
// existing session, a default model must be set, and no message may still be
// marked streaming (a crash mid-stream can persist that flag).
func normalizeState(s *AppState) {
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.ActiveSessionID != "" {
		found := false
		for i := range s.Sessions {
			if s.Sessions[i].ID == s.ActiveSessionID {
				found = true
				break
			}
		}
		if !found {
			s.ActiveSessionID = ""
			if len(s.Sessions) > 0 {
				s.ActiveSessionID = s.Sessions[0].ID
			}
		}
	}
	for i := range s.Sessions {
		for j := range s.Sessions[i].Messages {
			s.Sessions[i].Messages[j].Streaming = false
		}
	}
	s.Busy = false
}

// Subscribe registers a change listener. Not safe to call concurrently with
// transitions; wire subscribers up in the composition root before use.
func (st *Store) Subscribe(fn func(Event)) {
	st.subs = append(st.subs, fn)
}

func (st *Store) notify(events ...Event) {
	for _, ev := range events {
		for _, fn := range st.subs {
			fn(ev)
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Clone()
}

func (st *Store) sessionByID(id string) *ChatSession {
	for i := range st.state.Sessions {
		if st.state.Sessions[i].ID == id {
			return &st.state.Sessions[i]
		}
	}
	return nil
}

// NewSession inserts an empty session at the front and selects it.
func (st *Store) NewSession() ChatSession {
	st.mu.Lock()
	sess := ChatSession{
		ID:        uuid.NewString(),
		Title:     "New Conversation",
		CreatedAt: time.Now(),
	}
	st.state.Sessions = append([]ChatSession{sess}, st.state.Sessions...)
	st.state.ActiveSessionID = sess.ID
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
	return sess
}

// SelectSession makes the given session active. Unknown ids are ignored so a
// stale click in the sidebar never breaks the user-visible flow.
func (st *Store) SelectSession(id string) {
	st.mu.Lock()
	if st.sessionByID(id) == nil {
		st.mu.Unlock()
		return
	}
	st.state.ActiveSessionID = id
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
}

// DeleteSession removes a session. If it was active, selection moves to the
// new first session, or to none when the list is empty. The active id never
// dangles.
func (st *Store) DeleteSession(id string) {
	st.mu.Lock()
	kept := st.state.Sessions[:0]
	removed := false
	for _, sess := range st.state.Sessions {
		if sess.ID == id {
			removed = true
			continue
		}
		kept = append(kept, sess)
	}
	if !removed {
		st.mu.Unlock()
		return
	}
	st.state.Sessions = kept
	if st.state.ActiveSessionID == id {
		st.state.ActiveSessionID = ""
		if len(kept) > 0 {
			st.state.ActiveSessionID = kept[0].ID
		}
	}
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
}

// SubmitUserMessage validates and records a user turn. It appends the user
// message together with an empty streaming assistant placeholder (both become
// visible atomically), marks the store busy, and returns what the
// orchestrator needs to issue the request.
//
// Returns ok=false without mutating anything when the text is blank or a
// request is already in flight.
func (st *Store) SubmitUserMessage(text string) (Submission, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, false
	}

	st.mu.Lock()
	if st.state.Busy {
		st.mu.Unlock()
		return Submission{}, false
	}

	target := st.sessionByID(st.state.ActiveSessionID)
	if target == nil {
		sess := ChatSession{
			ID:        uuid.NewString(),
			Title:     "New Chat",
			CreatedAt: time.Now(),
		}
		st.state.Sessions = append([]ChatSession{sess}, st.state.Sessions...)
		st.state.ActiveSessionID = sess.ID
		target = &st.state.Sessions[0]
	}

	now := time.Now()
	userMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: now,
	}
	placeholder := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Streaming: true,
		CreatedAt: now,
	}

	firstTurn := len(target.Messages) == 0
	history := append(cloneMessages(target.Messages), userMsg)
	target.Messages = append(target.Messages, userMsg, placeholder)
	st.state.Busy = true

	sub := Submission{
		SessionID:   target.ID,
		AssistantID: placeholder.ID,
		UserText:    text,
		History:     history,
		FirstTurn:   firstTurn,
		Model:       st.state.Model,
		UseThinking: st.state.UseThinking,
	}
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
	return sub, true
}

// ApplyStreamedContent sets the streaming message's content to the latest
// cumulative text. Late chunks for a deleted session or an already frozen
// message are dropped silently.
func (st *Store) ApplyStreamedContent(sessionID, messageID, fullText string) {
	st.mu.Lock()
	msg := st.streamingMessage(sessionID, messageID)
	if msg == nil {
		st.mu.Unlock()
		return
	}
	msg.Content = fullText
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
}

// ApplyStreamedThinking sets the side-channel reasoning text of the streaming
// message. Same no-op rules as ApplyStreamedContent.
func (st *Store) ApplyStreamedThinking(sessionID, messageID, fullText string) {
	st.mu.Lock()
	msg := st.streamingMessage(sessionID, messageID)
	if msg == nil {
		st.mu.Unlock()
		return
	}
	msg.Thinking = fullText
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
}

func (st *Store) streamingMessage(sessionID, messageID string) *Message {
	sess := st.sessionByID(sessionID)
	if sess == nil {
		return nil
	}
	for i := range sess.Messages {
		if sess.Messages[i].ID == messageID && sess.Messages[i].Streaming {
			return &sess.Messages[i]
		}
	}
	return nil
}

// FinalizeStream freezes the streaming message and clears the in-flight flag.
// On error the message content is replaced with a user-visible error line.
// The flag is cleared even when the owning session was deleted mid-stream, so
// the client never gets stuck busy.
func (st *Store) FinalizeStream(sessionID, messageID string, streamErr error) {
	st.mu.Lock()
	if msg := st.streamingMessage(sessionID, messageID); msg != nil {
		if streamErr != nil {
			msg.Content = "Error: " + streamErr.Error() + ". Please check your connection or API key."
		}
		msg.Streaming = false
	}
	st.state.Busy = false
	st.mu.Unlock()

	st.notify(EventSessionsChanged, EventTranscriptChanged)
}

// SetTitle renames a session. Called by the title summarizer; if the session
// was deleted in the meantime this is a silent no-op.
func (st *Store) SetTitle(sessionID, title string) {
	st.mu.Lock()
	sess := st.sessionByID(sessionID)
	if sess == nil {
		st.mu.Unlock()
		return
	}
	sess.Title = title
	st.mu.Unlock()

	st.notify(EventSessionsChanged)
}

// SetModel records the model selection. Unsupported ids are kept as chosen;
// substitution to a routable model happens at request time.
func (st *Store) SetModel(id string) {
	st.mu.Lock()
	st.state.Model = id
	st.mu.Unlock()

	st.notify(EventSessionsChanged)
}

// ToggleThinking flips the extended-reasoning preference.
func (st *Store) ToggleThinking() bool {
	st.mu.Lock()
	st.state.UseThinking = !st.state.UseThinking
	on := st.state.UseThinking
	st.mu.Unlock()

	st.notify(EventSessionsChanged)
	return on
}

// SetSidebar sets the sidebar flag directly. UI-only; not persisted and no
// event.
func (st *Store) SetSidebar(open bool) {
	st.mu.Lock()
	st.state.SidebarOpen = open
	st.mu.Unlock()
}

// ToggleSidebar flips the sidebar flag. UI-only; not persisted and no event.
func (st *Store) ToggleSidebar() bool {
	st.mu.Lock()
	st.state.SidebarOpen = !st.state.SidebarOpen
	open := st.state.SidebarOpen
	st.mu.Unlock()
	return open
}

// Busy reports whether a request is in flight.
func (st *Store) Busy() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Busy
}
