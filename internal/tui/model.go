package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Gundo1b/integenai/internal/app"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
	focusSidebar
)

type storeEventMsg struct{ ev app.Event }
type spinMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var suggestions = []string{
	"Explain a concept like I'm five",
	"Draft an email for me",
	"Help me debug some code",
	"Summarize a long article",
}

type keyMap struct {
	Quit       key.Binding
	Enter      key.Binding
	NewChat    key.Binding
	Sidebar    key.Binding
	CycleModel key.Binding
	Thinking   key.Binding
	FocusNext  key.Binding
	Delete     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c")),
		Enter:      key.NewBinding(key.WithKeys("enter")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n")),
		Sidebar:    key.NewBinding(key.WithKeys("ctrl+b")),
		CycleModel: key.NewBinding(key.WithKeys("ctrl+k")),
		Thinking:   key.NewBinding(key.WithKeys("ctrl+t")),
		FocusNext:  key.NewBinding(key.WithKeys("tab")),
		Delete:     key.NewBinding(key.WithKeys("delete", "backspace")),
	}
}

// MainModel is the full-screen chat UI: a session sidebar, the transcript
// viewport, and the input box. All chat state lives in the store; the model
// only keeps a snapshot plus view-local cursor positions.
type MainModel struct {
	app   *app.Application
	theme Theme
	keys  keyMap

	width  int
	height int
	ready  bool

	focus focusArea

	snapshot   app.AppState
	sidebarSel int

	input  textarea.Model
	chatVP viewport.Model

	markdown *MarkdownRenderer

	spinnerPos int
	events     chan app.Event
}

func NewMainModel(application *app.Application) *MainModel {
	ta := textarea.New()
	ta.Placeholder = "Message integen. Enter sends, Tab switches focus."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false

	// Keep textarea styling minimal; the input container carries the border.
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()

	t := NewTheme()
	m := &MainModel{
		app:      application,
		theme:    t,
		keys:     newKeyMap(),
		width:    100,
		height:   30,
		focus:    focusInput,
		snapshot: application.Store.Snapshot(),
		input:    ta,
		markdown: NewMarkdownRenderer(t),
		events:   make(chan app.Event, 64),
	}

	// The store notifies from orchestrator goroutines; forward events into
	// the Bubble Tea loop through a channel and drain it with a tea.Cmd.
	application.Store.Subscribe(func(ev app.Event) {
		select {
		case m.events <- ev:
		default:
			// Drop when the UI lags; the next event re-snapshots anyway.
		}
	})

	m.syncSidebarSel()
	return m
}

func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitStoreEvent())
}

func (m *MainModel) waitStoreEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return storeEventMsg{ev: <-events}
	}
}

func (m *MainModel) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(_ time.Time) tea.Msg { return spinMsg{} })
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// The sidebar does not fit in narrow terminals.
		if m.width < 70 && m.snapshot.SidebarOpen {
			m.app.Store.SetSidebar(false)
			m.snapshot.SidebarOpen = false
			if m.focus == focusSidebar {
				m.focus = focusInput
				m.input.Focus()
			}
		}

		layout := m.computeLayout()
		if !m.ready {
			m.chatVP = viewport.New(layout.ChatW, layout.ChatH)
			m.chatVP.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.chatVP.Width = layout.ChatW
			m.chatVP.Height = layout.ChatH
		}
		m.input.SetWidth(maxInt(10, layout.InputW))
		m.updateChatViewport()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.NewChat):
			m.app.Store.NewSession()
			m.focus = focusInput
			m.input.Focus()
			return m, nil

		case key.Matches(msg, m.keys.Sidebar):
			m.app.Store.ToggleSidebar()
			m.snapshot = m.app.Store.Snapshot()
			if !m.snapshot.SidebarOpen && m.focus == focusSidebar {
				m.focus = focusInput
				m.input.Focus()
			}
			m.updateChatViewport()
			return m, nil

		case key.Matches(msg, m.keys.CycleModel):
			m.app.Store.SetModel(app.NextModel(m.snapshot.Model))
			return m, nil

		case key.Matches(msg, m.keys.Thinking):
			m.app.Store.ToggleThinking()
			return m, nil

		case key.Matches(msg, m.keys.FocusNext):
			m.cycleFocus()
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			if m.focus == focusSidebar {
				m.selectSidebarSession()
				return m, nil
			}
			if m.focus == focusInput {
				return m, m.onEnter()
			}

		case key.Matches(msg, m.keys.Delete):
			if m.focus == focusSidebar {
				m.deleteSidebarSession()
				return m, nil
			}

		case msg.Type == tea.KeyUp:
			if m.focus == focusChat {
				m.chatVP.LineUp(1)
				return m, nil
			}
			if m.focus == focusSidebar {
				m.moveSidebar(-1)
				return m, nil
			}
		case msg.Type == tea.KeyDown:
			if m.focus == focusChat {
				m.chatVP.LineDown(1)
				return m, nil
			}
			if m.focus == focusSidebar {
				m.moveSidebar(1)
				return m, nil
			}
		case msg.Type == tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case msg.Type == tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}

	case storeEventMsg:
		m.snapshot = m.app.Store.Snapshot()
		m.syncSidebarSel()
		m.updateChatViewport()
		if msg.ev == app.EventTranscriptChanged {
			m.chatVP.GotoBottom()
		}
		return m, m.waitStoreEvent()

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.snapshot.Busy {
			return m, m.spinTick()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *MainModel) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	if !m.app.Submit(context.Background(), val) {
		return nil
	}
	m.input.Reset()
	m.snapshot = m.app.Store.Snapshot()
	m.syncSidebarSel()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	m.spinnerPos = 0
	return m.spinTick()
}

func (m *MainModel) cycleFocus() {
	next := m.focus + 1
	if next > focusSidebar {
		next = focusInput
	}
	if next == focusSidebar && !m.snapshot.SidebarOpen {
		next = focusInput
	}
	m.focus = next
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// syncSidebarSel keeps the sidebar cursor on the active session after the
// list changes underneath it.
func (m *MainModel) syncSidebarSel() {
	m.sidebarSel = 0
	for i, s := range m.snapshot.Sessions {
		if s.ID == m.snapshot.ActiveSessionID {
			m.sidebarSel = i
			return
		}
	}
}

func (m *MainModel) moveSidebar(delta int) {
	n := len(m.snapshot.Sessions)
	if n == 0 {
		return
	}
	m.sidebarSel += delta
	if m.sidebarSel < 0 {
		m.sidebarSel = 0
	}
	if m.sidebarSel >= n {
		m.sidebarSel = n - 1
	}
}

func (m *MainModel) selectSidebarSession() {
	if m.sidebarSel < 0 || m.sidebarSel >= len(m.snapshot.Sessions) {
		return
	}
	m.app.Store.SelectSession(m.snapshot.Sessions[m.sidebarSel].ID)
	m.snapshot = m.app.Store.Snapshot()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
}

func (m *MainModel) deleteSidebarSession() {
	if m.sidebarSel < 0 || m.sidebarSel >= len(m.snapshot.Sessions) {
		return
	}
	m.app.Store.DeleteSession(m.snapshot.Sessions[m.sidebarSel].ID)
	m.snapshot = m.app.Store.Snapshot()
	m.syncSidebarSel()
	m.updateChatViewport()
}

type layoutInfo struct {
	MainH    int
	SidebarW int
	ChatW    int
	ChatH    int
	InputW   int
}

func (m *MainModel) computeLayout() layoutInfo {
	top := 1
	foot := 1
	inputH := 3
	mainH := m.height - top - foot - inputH
	if mainH < 3 {
		mainH = 3
	}

	sidebarW := 0
	if m.snapshot.SidebarOpen && m.width >= 70 {
		sidebarW = 26
		if m.width < 100 {
			sidebarW = 20
		}
	}

	chatW := m.width - sidebarW
	if sidebarW > 0 {
		chatW -= 1 // divider
	}
	if chatW < 40 {
		chatW = 40
	}

	return layoutInfo{
		MainH:    mainH,
		SidebarW: sidebarW,
		ChatW:    chatW,
		ChatH:    mainH,
		InputW:   m.width - 6,
	}
}

func (m *MainModel) View() string {
	if !m.ready {
		return "…"
	}

	layout := m.computeLayout()
	top := m.renderTopBar()
	main := m.renderMain(layout)
	input := m.renderInputArea()
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, main, input, footer)
}

func (m *MainModel) renderTopBar() string {
	model := app.DisplayModel(m.snapshot.Model)
	left := m.theme.TopBarTitle.Render("integen") + " " + m.theme.TopBarBadge.Render(model.Name)
	if m.snapshot.UseThinking && app.SupportsThinking(m.snapshot.Model) {
		left += " " + m.theme.TopBarMeta.Render("[thinking]")
	}

	var status string
	if m.snapshot.Busy {
		status = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos] + " Generating…")
	} else {
		status = m.theme.TopBarMeta.Render("Ready")
	}
	right := m.theme.TopBarMeta.Render(time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	a := gap / 2
	b := gap - a
	return m.theme.TopBar.Render(left + strings.Repeat(" ", a) + status + strings.Repeat(" ", b) + right)
}

func (m *MainModel) renderFooter() string {
	hints := "Enter send  Tab focus  Ctrl+N new  Ctrl+B sidebar  Ctrl+K model  Ctrl+T thinking  Ctrl+C quit"
	if m.width < 100 {
		hints = "Enter send  Ctrl+N new  Ctrl+B sidebar  Ctrl+C quit"
	}
	return m.theme.Footer.Width(m.width).Render(hints)
}

// The input box spans the full width below both panes.
func (m *MainModel) renderInputArea() string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	return box.Width(maxInt(10, m.width-2)).Render(m.input.View())
}

func (m *MainModel) renderMain(l layoutInfo) string {
	chatPane := m.renderChatPane(l)
	if l.SidebarW == 0 {
		return chatPane
	}
	sidebar := m.renderSidebar(l)
	sep := m.theme.TopBarMeta.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, sep, chatPane)
}

func (m *MainModel) renderChatPane(l layoutInfo) string {
	box := m.theme.Pane
	if m.focus == focusChat {
		box = m.theme.PaneFocused
	}
	return box.Width(l.ChatW).Height(l.ChatH).Render(m.chatVP.View())
}

func (m *MainModel) renderSidebar(l layoutInfo) string {
	box := m.theme.Pane
	title := m.theme.PaneTitle.Render(fmt.Sprintf("Chats (%d)", len(m.snapshot.Sessions)))
	if m.focus == focusSidebar {
		box = m.theme.PaneFocused
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(m.snapshot.Sessions) == 0 {
		b.WriteString(m.theme.SessionItem.Render("No chats yet."))
	}
	itemW := maxInt(8, l.SidebarW-6)
	visible := maxInt(1, l.MainH-3)
	for i, s := range m.snapshot.Sessions {
		if i >= visible {
			break
		}
		label := truncateRunes(s.Title, itemW)
		prefix := "  "
		style := m.theme.SessionItem
		if s.ID == m.snapshot.ActiveSessionID {
			style = m.theme.SessionActive
		}
		if m.focus == focusSidebar && i == m.sidebarSel {
			prefix = "> "
		}
		b.WriteString(style.Render(prefix + label))
		if i != len(m.snapshot.Sessions)-1 {
			b.WriteString("\n")
		}
	}
	return box.Width(l.SidebarW).Height(l.MainH).Render(b.String())
}

func (m *MainModel) updateChatViewport() {
	if !m.ready {
		return
	}
	layout := m.computeLayout()
	chatWidth := layout.ChatW - 4
	if chatWidth < 20 {
		chatWidth = 20
	}

	active := m.snapshot.ActiveSession()
	if active == nil || len(active.Messages) == 0 {
		m.chatVP.SetContent(m.renderSplash(chatWidth))
		return
	}

	var b strings.Builder
	for _, msg := range active.Messages {
		b.WriteString(m.renderMessage(msg, chatWidth))
		b.WriteString("\n\n")
	}
	m.chatVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderSplash(width int) string {
	var b strings.Builder
	b.WriteString(m.theme.TopBarTitle.Render("integen aichat"))
	b.WriteString("\n")
	b.WriteString(m.theme.TopBarMeta.Render("Ask anything, or try one of these:"))
	b.WriteString("\n\n")
	for _, s := range suggestions {
		b.WriteString(m.theme.Suggestion.Render("  · " + s))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *MainModel) renderMessage(msg app.Message, width int) string {
	var roleStyle lipgloss.Style
	roleLabel := "SYS"
	switch msg.Role {
	case app.RoleUser:
		roleStyle = m.theme.RoleYou
		roleLabel = "YOU"
	case app.RoleAssistant:
		roleStyle = m.theme.RoleAI
		roleLabel = "AI"
	default:
		roleStyle = m.theme.RoleSys
	}
	if msg.Role == app.RoleAssistant && strings.HasPrefix(msg.Content, "Error: ") {
		roleStyle = m.theme.RoleErr
		roleLabel = "ERR"
	}

	head := roleStyle.Render(roleLabel)
	meta := m.theme.TopBarMeta.Render(msg.CreatedAt.Format("15:04"))
	header := head + " " + meta

	var body string
	switch {
	case msg.Role == app.RoleAssistant && msg.Streaming && msg.Content == "":
		body = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos] + " thinking…")
	case msg.Role == app.RoleAssistant:
		body = m.markdown.Render(msg.Content, width)
		if msg.Streaming {
			body += m.theme.Spinner.Render(" ▌")
		}
	default:
		body = lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content)
	}

	if msg.Thinking != "" && msg.Role == app.RoleAssistant {
		thought := lipgloss.NewStyle().
			Foreground(m.theme.TextFaint).
			Italic(true).
			Width(width).
			Render(msg.Thinking)
		body = thought + "\n" + body
	}

	return header + "\n" + body
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
