package ui

import (
	"context"
	"fmt"
	"strings"

	"cloudwalk-rag/models"
	"cloudwalk-rag/rag"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			PaddingLeft(2)

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD93D")).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// title, status, input and help lines around the transcript
	chromeHeight = 6
)

// Answerer answers a question given the prior turns.
type Answerer interface {
	Ask(ctx context.Context, history []models.Message, question string) (rag.Answer, error)
}

// IndexSizer is optionally implemented by an Answerer to show the index size
// in the title bar.
type IndexSizer interface {
	Chunks() int
}

type keyMap struct {
	Quit   key.Binding
	Submit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
	}
}

// turn is one rendered line of the transcript.
type turn struct {
	role   models.Role
	text   string
	failed bool
}

// Model is the chat screen. Only completed exchanges enter history, so a
// failed question is shown but never sent back to the model.
type Model struct {
	ctx      context.Context
	answerer Answerer
	keys     keyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history  []models.Message
	turns    []turn
	pending  string
	err      error
	loading  bool
	quitting bool
	width    int
	height   int
}

// NewModel creates the chat model. ctx is passed to every Ask call.
func NewModel(ctx context.Context, answerer Answerer) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about CloudWalk..."
	ti.Prompt = "> "
	ti.CharLimit = 1000
	ti.Width = defaultWidth - 4
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	m := &Model{
		ctx:      ctx,
		answerer: answerer,
		keys:     defaultKeyMap(),
		input:    ti,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:  sp,
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.refresh()
	return m
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// History returns the completed exchanges in order.
func (m *Model) History() []models.Message {
	out := make([]models.Message, len(m.history))
	copy(out, m.history)
	return out
}

// Err returns the last failure, cleared on the next question.
func (m *Model) Err() error { return m.err }

// Loading reports whether an answer is in flight.
func (m *Model) Loading() bool { return m.loading }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()
		}
		if m.loading {
			return m, nil
		}

	case answerMsg:
		m.finish(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	if m.loading {
		return nil
	}
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return nil
	}
	if question == "exit" || question == "quit" {
		m.quitting = true
		return tea.Quit
	}

	m.input.Reset()
	m.err = nil
	m.loading = true
	m.pending = question
	m.turns = append(m.turns, turn{role: models.RoleUser, text: question})
	m.refresh()

	return tea.Batch(m.spinner.Tick, m.ask(m.History(), question))
}

func (m *Model) finish(msg answerMsg) {
	m.loading = false
	m.pending = ""

	if msg.err != nil {
		m.err = msg.err
		if n := len(m.turns); n > 0 && m.turns[n-1].role == models.RoleUser {
			m.turns[n-1].failed = true
		}
		m.refresh()
		return
	}

	m.history = append(m.history,
		models.Message{Role: models.RoleUser, Content: msg.question},
		models.Message{Role: models.RoleAssistant, Content: msg.answer.Text},
	)
	m.turns = append(m.turns, turn{role: models.RoleAssistant, text: msg.answer.Text})
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *Model) transcript() string {
	if len(m.turns) == 0 {
		return helpStyle.Render("Ask anything about CloudWalk and its products.")
	}

	wrap := textStyle.Width(max(m.width-2, 20))
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		switch t.role {
		case models.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(t.text))
		b.WriteString("\n")
		if t.failed {
			b.WriteString(errorStyle.Render("(not answered)"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// View renders the transcript, a status line and the input.
func (m *Model) View() string {
	if m.quitting {
		return "\nBye!\n\n"
	}

	var b strings.Builder
	title := "CloudWalk Chatbot"
	if sizer, ok := m.answerer.(IndexSizer); ok {
		title = fmt.Sprintf("%s · %d chunks indexed", title, sizer.Chunks())
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(loadingStyle.Render(m.spinner.View() + " Thinking..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: send • esc: quit"))
	return b.String()
}

type answerMsg struct {
	question string
	answer   rag.Answer
	err      error
}

func (m *Model) ask(history []models.Message, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.answerer.Ask(m.ctx, history, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// Run starts the chat in the alternate screen and blocks until the user quits.
func Run(ctx context.Context, answerer Answerer) error {
	p := tea.NewProgram(NewModel(ctx, answerer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
