package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gundo1b/integenai/internal/app"
)

// Run starts the full-screen chat UI and blocks until the user quits.
func Run(application *app.Application) error {
	p := tea.NewProgram(NewMainModel(application), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
