package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	moduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxHistory bounds the number of results kept on screen.
const maxHistory = 10

type historyEntry struct {
	err  error
	name string
}

type interactiveModel struct {
	err     error
	env     *env
	cfg     Config
	history []historyEntry
	input   textinput.Model
	loaded  bool
	// busy is set while a session command runs; sessions take one caller.
	busy bool
}

type loadedMsg struct {
	err error
	env *env
}

type callResultMsg struct {
	err  error
	name string
}

func newInteractiveModel(cfg Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "module.function"
	ti.Prompt = "call> "
	ti.Width = 48
	ti.ShowSuggestions = true
	ti.SetSuggestions(cfg.Calls)
	ti.Focus()

	return &interactiveModel{cfg: cfg, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.open, textinput.Blink)
}

func (m *interactiveModel) open() tea.Msg {
	e, err := openEnv(m.cfg)
	return loadedMsg{env: e, err: err}
}

func (m *interactiveModel) call(name string) tea.Cmd {
	return func() tea.Msg {
		return callResultMsg{name: name, err: m.env.sess.CallByName(name)}
	}
}

func (m *interactiveModel) trim() tea.Msg {
	return callResultMsg{name: "trim", err: m.env.sess.Trim()}
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.env != nil {
		if err := m.env.close(); err != nil {
			m.err = err
		}
		m.env = nil
	}
	return m, tea.Quit
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.busy {
				return m, nil
			}
			return m.quit()

		case "ctrl+t":
			if !m.loaded || m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.trim

		case "enter":
			name := strings.TrimSpace(m.input.Value())
			if !m.loaded || m.busy || name == "" {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			return m, m.call(name)
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.env = msg.env
		m.loaded = true

	case callResultMsg:
		m.busy = false
		m.history = append(m.history, historyEntry(msg))
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if !m.loaded {
		return "Opening session..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("IREE Runner"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Backend + "/" + m.env.dev.Driver())
	b.WriteString("\n\n")

	b.WriteString("Modules:\n")
	for _, mod := range m.env.sess.Modules() {
		b.WriteString("  ")
		b.WriteString(moduleStyle.Render(mod.Source))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, h := range m.history {
		b.WriteString(funcStyle.Render(h.name))
		b.WriteString(": ")
		if h.err != nil {
			b.WriteString(errorStyle.Render(h.err.Error()))
		} else {
			b.WriteString(resultStyle.Render("ok"))
		}
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter call • tab complete • ctrl+t trim • esc quit"))

	return b.String()
}

func runInteractive(cfg Config) error {
	m := newInteractiveModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	if m.env != nil {
		return m.env.close()
	}
	return m.err
}
