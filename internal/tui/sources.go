// Package tui collects merge sources interactively when no sources file is
// given and stdin is a terminal.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/geezhu/clash-subscription-merge/pkg/config"
)

// ErrCancelled reports that the user aborted source entry.
var ErrCancelled = errors.New("source entry cancelled")

const (
	fieldName = iota
	fieldPort
	fieldURL
	fieldSnippet
	fieldCount
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var fieldLabels = [fieldCount]string{
	"Name (namespace / provider name)",
	"Port (listener port, 1-65535)",
	"URL (subscription URL, or \"local\")",
	"Snippet (YAML path with proxy-groups + rules)",
}

type model struct {
	inputs    [fieldCount]textinput.Model
	focus     int
	sources   []config.SourceConfig
	errMsg    string
	finished  bool
	cancelled bool
}

func newModel() model {
	var m model
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 256
		m.inputs[i] = ti
	}
	m.inputs[fieldURL].Placeholder = "local"
	m.inputs[fieldName].Focus()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlD:
			if len(m.sources) == 0 {
				m.errMsg = "at least one source is required (ctrl+c to cancel)"
				return m, nil
			}
			m.finished = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			return m.setFocus((m.focus + 1) % fieldCount), nil
		case tea.KeyShiftTab, tea.KeyUp:
			return m.setFocus((m.focus + fieldCount - 1) % fieldCount), nil
		case tea.KeyEnter:
			return m.advance()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m model) setFocus(idx int) model {
	m.inputs[m.focus].Blur()
	m.focus = idx
	m.inputs[m.focus].Focus()
	return m
}

// advance validates the focused field and moves on; on the last field it
// commits the source and resets the form for the next one.
func (m model) advance() (tea.Model, tea.Cmd) {
	if msg := m.validateField(m.focus); msg != "" {
		m.errMsg = msg
		return m, nil
	}
	m.errMsg = ""

	if m.focus < fieldCount-1 {
		return m.setFocus(m.focus + 1), nil
	}

	port, _ := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	m.sources = append(m.sources, config.SourceConfig{
		Name:    strings.TrimSpace(m.inputs[fieldName].Value()),
		Port:    port,
		URL:     strings.TrimSpace(m.inputs[fieldURL].Value()),
		Snippet: strings.TrimSpace(m.inputs[fieldSnippet].Value()),
	})
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	return m.setFocus(fieldName), nil
}

func (m model) validateField(idx int) string {
	v := strings.TrimSpace(m.inputs[idx].Value())
	switch idx {
	case fieldName:
		if v == "" {
			return "name must not be empty"
		}
		// Names collide on their sanitized form ("/" becomes "_"), so
		// compare both sides sanitized.
		sanitized := strings.ReplaceAll(v, "/", "_")
		for _, src := range m.sources {
			if strings.ReplaceAll(src.Name, "/", "_") == sanitized {
				return fmt.Sprintf("name %q already used", v)
			}
		}
	case fieldPort:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return "port must be an integer in 1-65535"
		}
	case fieldURL:
		if v == "" {
			return "url must not be empty (use \"local\" for local snippets)"
		}
	case fieldSnippet:
		if v == "" {
			return "snippet path must not be empty"
		}
	}
	return ""
}

func (m model) View() string {
	if m.finished || m.cancelled {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(fmt.Sprintf("Source #%d", len(m.sources)+1)))
	for i := range m.inputs {
		fmt.Fprintf(&b, "%s\n%s\n", labelStyle.Render(fieldLabels[i]), m.inputs[i].View())
	}
	if m.errMsg != "" {
		fmt.Fprintf(&b, "\n%s\n", errStyle.Render(m.errMsg))
	}
	if n := len(m.sources); n > 0 {
		fmt.Fprintf(&b, "\n%s\n", doneStyle.Render(fmt.Sprintf("%d source(s) entered", n)))
	}
	fmt.Fprintf(&b, "\n%s\n", helpStyle.Render("enter: next field / commit source · esc: finish · ctrl+c: cancel"))
	return b.String()
}

// Run collects sources until the user finishes with esc (or ctrl+d).
func Run(in io.Reader, out io.Writer) ([]config.SourceConfig, error) {
	p := tea.NewProgram(newModel(), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("source entry: %w", err)
	}
	m, ok := final.(model)
	if !ok || m.cancelled {
		return nil, ErrCancelled
	}
	return m.sources, nil
}
