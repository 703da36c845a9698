package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	releasedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLines = 18

type interactiveModel struct {
	sess    *session
	input   textinput.Model
	history []string
	dir     string
}

func newInteractiveModel(sess *session, dir string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "new journal j1"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		sess:  sess,
		input: ti,
		dir:   dir,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "quit" || line == "q" {
				return m, tea.Quit
			}
			if line != "" {
				m.execute(line)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) execute(line string) {
	m.push(funcStyle.Render(line))

	st, err := parseCommand(line)
	if err != nil {
		m.push(errorStyle.Render("  " + err.Error()))
		return
	}
	result, err := m.sess.exec(st)
	if err != nil {
		m.push(errorStyle.Render("  error: " + err.Error()))
	} else {
		m.push(resultStyle.Render("  " + result))
	}
	for _, e := range m.sess.events() {
		m.push(eventStyle.Render("  " + e))
	}
}

func (m *interactiveModel) push(line string) {
	m.history = append(m.history, line)
	if n := len(m.history); n > historyLines {
		m.history = m.history[n-historyLines:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lifecycle"))
	b.WriteString(" ")
	b.WriteString(m.dir)
	b.WriteString("\n\n")

	b.WriteString("Objects: ")
	names := m.sess.names()
	if len(names) == 0 {
		b.WriteString(helpStyle.Render("none"))
	}
	for i, name := range names {
		if i > 0 {
			b.WriteString(" ")
		}
		if m.sess.objects[name].Released() {
			b.WriteString(releasedStyle.Render(name))
		} else {
			b.WriteString(resultStyle.Render(name))
		}
	}
	if m.sess.pending > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  (%d fallback(s) awaiting collect)", m.sess.pending)))
	}
	b.WriteString("\n\n")

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("new <buffer|journal|indexed|mirror> <name> • write <name> <data> • work <name>"))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("release [base] <name> • drop <name> • collect • q quit"))

	return b.String()
}

func runInteractive(dir string, logger *zap.Logger) error {
	sess, err := newSession(context.Background(), dir, 0, logger)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newInteractiveModel(sess, dir), tea.WithAltScreen())
	_, err = p.Run()
	if cerr := sess.close(); err == nil {
		err = cerr
	}
	return err
}
