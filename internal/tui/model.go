package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/manthysbr/toolchat/internal/core/domain"
)

// Backend is the foreground's view of the worker bridge: a queue in, two
// queues out, none of them blocking.
type Backend interface {
	Submit(p domain.Prompt) error
	TryReceive() (domain.Response, bool)
	TryStep() (domain.StepEvent, bool)
}

// Resetter clears the chat history (ChatService)
type Resetter interface {
	Reset(ctx context.Context) error
}

type Config struct {
	PollInterval time.Duration
	Provider     string
	Model        string
	Restored     int // messages restored from the last conversation
}

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryStep
	entryError
	entryNote
)

type entry struct {
	kind entryKind
	text string
}

type tickMsg time.Time

// Model is the bubbletea model of the chat screen. At most one prompt is
// outstanding at a time.
type Model struct {
	logger  *slog.Logger
	backend Backend
	chat    Resetter
	cfg     Config

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	theme      theme

	entries       []entry
	pending       bool
	pendingID     domain.PromptID
	lastSubmitted string
	started       time.Time

	width, height int
	ready         bool
}

func New(logger *slog.Logger, backend Backend, chat Resetter, cfg Config) Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Ask something. /clear resets the conversation, /quit exits."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	m := Model{
		logger:     logger,
		backend:    backend,
		chat:       chat,
		cfg:        cfg,
		input:      input,
		transcript: viewport.New(0, 0),
		spinner:    sp,
		theme:      newTheme(),
		started:    time.Now(),
	}
	if cfg.Restored > 0 {
		m.entries = append(m.entries, entry{kind: entryNote, text: fmt.Sprintf("restored %d messages from the last conversation", cfg.Restored)})
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, tickEvery(m.cfg.PollInterval))
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Pending reports whether a prompt is waiting for its response.
func (m Model) Pending() bool { return m.pending }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case tickMsg:
		m.poll()
		cmds = append(cmds, tickEvery(m.cfg.PollInterval))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	switch text {
	case "/quit", "/exit":
		return m, tea.Quit
	}
	if m.pending {
		return m, nil
	}

	m.input.Reset()
	if text == "/clear" {
		if err := m.chat.Reset(context.Background()); err != nil {
			m.push(entryError, "reset failed: "+err.Error())
			return m, nil
		}
		m.entries = nil
		m.push(entryNote, "conversation cleared")
		return m, nil
	}

	p := domain.NewPrompt(text)
	if err := m.backend.Submit(p); err != nil {
		m.push(entryError, err.Error())
		return m, nil
	}
	m.logger.Info("submit_prompt", "prompt_id", p.ID)

	m.pending = true
	m.pendingID = p.ID
	m.lastSubmitted = text
	m.push(entryUser, text)
	return m, m.spinner.Tick
}

// poll drains step events, then checks for a response. Neither call blocks.
func (m *Model) poll() {
	for {
		s, ok := m.backend.TryStep()
		if !ok {
			break
		}
		if line := StepLine(s); line != "" {
			m.push(entryStep, line)
		}
	}

	resp, ok := m.backend.TryReceive()
	if !ok {
		return
	}
	if resp.PromptID == m.pendingID {
		m.pending = false
		m.pendingID = ""
	}
	if resp.OK() {
		m.logger.Info("answer_received", "prompt_id", resp.PromptID, "steps", resp.Steps)
		m.push(entryAssistant, resp.Text)
		return
	}
	m.logger.Warn("prompt_failed", "prompt_id", resp.PromptID, "kind", resp.Failure.Kind, "error", resp.Failure.Message)
	m.push(entryError, resp.Failure.Error())
}

func StepLine(s domain.StepEvent) string {
	switch s.Kind {
	case domain.StepProposed:
		if s.Decision != nil && s.Decision.IsToolCall() {
			return fmt.Sprintf("→ %s %s", s.Decision.ToolName, compact(s.Decision.Arguments, 120))
		}
	case domain.StepExecuted:
		return fmt.Sprintf("← %s %s", s.ToolName, compact(s.Result, 120))
	}
	return ""
}

func compact(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "…"
	}
	return s
}

func (m *Model) push(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
	m.refresh()
}

// Run starts the full-screen program and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
