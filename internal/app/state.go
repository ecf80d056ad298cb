package app

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single transcript entry. Content is mutable only while
// Streaming is true; after FinalizeStream the message is frozen.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Streaming bool      `json:"streaming,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession is one conversation thread. Messages are append-only; at most
// one message per session is streaming at any time.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// AppState is the whole client state. Busy and SidebarOpen are ephemeral and
// never persisted.
type AppState struct {
	Sessions        []ChatSession // newest first
	ActiveSessionID string        // empty means no session selected
	SidebarOpen     bool
	Busy            bool
	Model           string
	UseThinking     bool
}

// ActiveSession returns the selected session, or nil if none is selected.
func (s *AppState) ActiveSession() *ChatSession {
	if s.ActiveSessionID == "" {
		return nil
	}
	for i := range s.Sessions {
		if s.Sessions[i].ID == s.ActiveSessionID {
			return &s.Sessions[i]
		}
	}
	return nil
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	copy(out, in)
	return out
}

func cloneSessions(in []ChatSession) []ChatSession {
	if in == nil {
		return nil
	}
	out := make([]ChatSession, len(in))
	for i, sess := range in {
		out[i] = sess
		out[i].Messages = cloneMessages(sess.Messages)
	}
	return out
}

// Clone returns a deep copy, safe to hand to the presentation layer.
func (s AppState) Clone() AppState {
	s.Sessions = cloneSessions(s.Sessions)
	return s
}
