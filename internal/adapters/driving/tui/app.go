package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// chrome is the number of rows used by the title, input and status bar.
const chrome = 6

// turn is one question and its answer.
type turn struct {
	question string
	answer   strings.Builder
	sources  []domain.Source
	err      string
	done     bool
}

// App is the chat model following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	input    textinput.Model
	viewport viewport.Model

	turns          []*turn
	conversationID string
	forceWeb       bool

	events    <-chan domain.StreamEvent
	cancel    context.CancelFunc
	streaming bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat application.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   styles.DefaultStyles(),
		keys:     keymap.DefaultKeyMap(),
		input:    input,
		viewport: viewport.New(80, 18),
	}, nil
}

// WithContext sets the parent context for every question.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("sercha-rag"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.StreamStarted:
		a.events = msg.Events
		return a, waitForEvent(a.events)

	case messages.StreamEvent:
		a.apply(msg.Event)
		a.refresh()
		return a, waitForEvent(a.events)

	case messages.StreamClosed:
		a.finish()
		a.refresh()
		return a, nil

	case messages.ErrorOccurred:
		if t := a.current(); t != nil {
			t.err = msg.Err.Error()
		}
		a.finish()
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.stop()
		return a, tea.Quit

	case key.Matches(msg, a.keys.Cancel):
		if a.streaming {
			a.stop()
		}
		return a, nil

	case key.Matches(msg, a.keys.NewConversation):
		if a.streaming {
			return a, nil
		}
		a.turns = nil
		a.conversationID = ""
		a.refresh()
		return a, nil

	case key.Matches(msg, a.keys.ToggleWeb):
		a.forceWeb = !a.forceWeb
		return a, nil

	case key.Matches(msg, a.keys.ScrollUp), key.Matches(msg, a.keys.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case key.Matches(msg, a.keys.Send):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.streaming {
			return a, nil
		}
		a.input.Reset()
		return a, a.ask(question)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask records a new turn and returns the command that starts the stream.
func (a *App) ask(question string) tea.Cmd {
	a.turns = append(a.turns, &turn{question: question})
	a.streaming = true
	a.refresh()

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	req := domain.ChatRequest{
		Message:        question,
		ConversationID: a.conversationID,
		ForceWebSearch: a.forceWeb,
	}
	chat := a.ports.Chat

	return func() tea.Msg {
		events, err := chat.Stream(ctx, req)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.StreamStarted{Events: events}
	}
}

func waitForEvent(events <-chan domain.StreamEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.StreamEvent{Event: ev}
	}
}

func (a *App) apply(ev domain.StreamEvent) {
	t := a.current()
	if t == nil {
		return
	}
	switch ev.Type {
	case domain.EventMetadata:
		a.conversationID = ev.Metadata.ConversationID
	case domain.EventSources:
		t.sources = ev.Sources.Sources
	case domain.EventToken:
		t.answer.WriteString(ev.Token.Content)
	case domain.EventDone:
		t.done = true
		a.conversationID = ev.Done.ConversationID
	case domain.EventError:
		t.err = ev.Error.Error
	}
}

func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) finish() {
	a.stop()
	a.cancel = nil
	a.events = nil
	a.streaming = false
}

func (a *App) current() *turn {
	if len(a.turns) == 0 {
		return nil
	}
	return a.turns[len(a.turns)-1]
}

// refresh re-renders the transcript into the viewport.
func (a *App) refresh() {
	a.viewport.SetContent(a.transcript())
	a.viewport.GotoBottom()
}

func (a *App) transcript() string {
	if len(a.turns) == 0 {
		return a.styles.Muted.Render("Ask anything about your documents.")
	}

	width := a.viewport.Width
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, t := range a.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.styles.User.Render("You"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(t.question))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Assistant.Render("Assistant"))
		b.WriteString("\n")
		if t.answer.Len() > 0 {
			b.WriteString(wrap.Render(a.styles.Answer.Render(t.answer.String())))
			b.WriteString("\n")
		}
		if t.err != "" {
			b.WriteString(a.styles.Error.Render("Error: " + t.err))
			b.WriteString("\n")
		}
		if len(t.sources) > 0 && (t.done || t.answer.Len() > 0) {
			b.WriteString(a.renderSources(t.sources))
		}
	}
	return b.String()
}

func (a *App) renderSources(sources []domain.Source) string {
	var b strings.Builder
	b.WriteString(a.styles.Muted.Render("Sources:"))
	b.WriteString("\n")
	for i, s := range sources {
		style := a.styles.Internal
		if s.Origin == domain.OriginWeb {
			style = a.styles.Web
		}
		line := fmt.Sprintf("  [%d] %s (%.2f)", i+1, s.Label, s.Score)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	title := a.styles.Title.Render("sercha-rag")
	if a.conversationID != "" {
		title += a.styles.Muted.Render("  " + a.conversationID)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		a.viewport.View(),
		a.styles.InputField.Width(max(a.width-4, 10)).Render(a.input.View()),
		a.statusBar(),
	)
}

func (a *App) statusBar() string {
	parts := make([]string, 0, 8)
	if a.streaming {
		parts = append(parts, "answering...")
	}
	if a.forceWeb {
		parts = append(parts, "web: forced")
	} else {
		parts = append(parts, "web: auto")
	}
	for _, b := range a.keys.ShortHelp() {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return a.styles.StatusBar.Render(strings.Join(parts, " • "))
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.stop()
	return err
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.viewport.Width = width
	a.viewport.Height = max(height-chrome, 3)
	a.input.Width = max(width-8, 10)
	a.refresh()
}

// Streaming reports whether an answer is in progress.
func (a *App) Streaming() bool {
	return a.streaming
}

// ConversationID returns the conversation the next question continues.
func (a *App) ConversationID() string {
	return a.conversationID
}

// ForceWeb reports whether the next question forces web search.
func (a *App) ForceWeb() bool {
	return a.forceWeb
}
