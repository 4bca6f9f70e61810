package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	root      lipgloss.Style
	header    lipgloss.Style
	panel     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	step      lipgloss.Style
	errorLine lipgloss.Style
	note      lipgloss.Style
	status    lipgloss.Style
	footer    lipgloss.Style
}

func newTheme() theme {
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	muted := lipgloss.Color("#7a7a8c")

	return theme{
		root: lipgloss.NewStyle().Padding(0, 1),
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(pink),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		step:      lipgloss.NewStyle().Foreground(muted),
		errorLine: lipgloss.NewStyle().Foreground(pink).Bold(true),
		note:      lipgloss.NewStyle().Foreground(muted).Italic(true),
		status:    lipgloss.NewStyle().Foreground(blue),
		footer:    lipgloss.NewStyle().Foreground(muted),
	}
}

const chromeHeight = 6 // header, status, input, footer and the panel border

func (m *Model) layout() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	h := m.height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.transcript.Width = w
	m.transcript.Height = h
	m.input.Width = w - 4
	m.refresh()
}

// refresh re-renders the transcript and scrolls to the end.
func (m *Model) refresh() {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch e.kind {
		case entryUser:
			b.WriteString(m.theme.user.Render("you") + "\n" + e.text + "\n")
		case entryAssistant:
			b.WriteString(m.theme.assistant.Render("assistant") + "\n" + RenderMarkdown(e.text, m.transcript.Width) + "\n")
		case entryStep:
			b.WriteString(m.theme.step.Render(e.text))
		case entryError:
			b.WriteString(m.theme.errorLine.Render("error: " + e.text))
		case entryNote:
			b.WriteString(m.theme.note.Render(e.text))
		}
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

// RenderMarkdown renders an answer for the terminal, falling back to the raw
// text when glamour fails.
func RenderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 76
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := m.theme.header.Render("toolchat") + m.theme.footer.Render(fmt.Sprintf("  %s · %s", m.cfg.Provider, m.cfg.Model))

	var status string
	if m.pending {
		status = m.theme.status.Render(m.spinner.View() + " thinking: " + compact(m.lastSubmitted, 60))
	} else {
		status = m.theme.status.Render("ready")
	}

	elapsed := time.Since(m.started).Seconds()
	footer := m.theme.footer.Render(fmt.Sprintf("Enter send · /clear reset · Esc/Ctrl+C quit · %.1fs", elapsed))

	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.theme.panel.Render(m.transcript.View()),
		status,
		m.input.View(),
		footer,
	))
}
