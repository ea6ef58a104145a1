package chatcmder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/chatlog"
	"github.com/papercomputeco/chatwidget/pkg/cliui"
	"github.com/papercomputeco/chatwidget/pkg/widget"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// rows used below the viewport: input line and help line
	chromeHeight = 2
)

type chatKeyMap struct {
	Send       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.PageUp, k.PageDown, k.ScrollDown, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Quit}, {k.PageUp, k.PageDown, k.ScrollDown}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		ScrollDown: key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "latest")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// turnSettledMsg carries a finished exchange back onto the event loop.
type turnSettledMsg struct {
	turn   *widget.Turn
	result widget.Result
}

type modelConfig struct {
	client   chatclient.Chatter
	logger   *slog.Logger
	serial   bool
	markdown bool
}

// chatModel is the bubbletea front end for the widget. It is the widget's
// Display, and its text input is the widget's Input.
type chatModel struct {
	ctx      context.Context
	widget   *widget.Widget
	input    textinput.Model
	viewport viewport.Model
	keys     chatKeyMap
	help     help.Model
	markdown bool
	width    int
	height   int
}

func newChatModel(ctx context.Context, cfg modelConfig) (*chatModel, error) {
	ti := textinput.New()
	ti.Prompt = cliui.UserStyle.Render("you> ")
	ti.Placeholder = "Type a message"
	ti.Focus()

	m := &chatModel{
		ctx:      ctx,
		input:    ti,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		keys:     defaultKeyMap(),
		help:     help.New(),
		markdown: cfg.markdown,
		width:    defaultWidth,
		height:   defaultHeight,
	}

	w, err := widget.New(widget.Config{
		Input:   &m.input,
		Display: m,
		Client:  cfg.client,
		Logger:  cfg.logger,
		Serial:  cfg.serial,
	})
	if err != nil {
		return nil, err
	}
	m.widget = w

	return m, nil
}

// ScrollToBottom re-renders the log into the viewport and shows its end.
func (m *chatModel) ScrollToBottom() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case turnSettledMsg:
		next := m.widget.Settle(msg.turn, msg.result)
		return m, m.dispatch(next)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			return m, m.dispatch(m.widget.Submit())
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height/2)
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height/2)
			return m, nil
		case key.Matches(msg, m.keys.ScrollDown):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch turns each ready turn into a command that performs the exchange
// off the event loop and reports back with a turnSettledMsg.
func (m *chatModel) dispatch(turns []*widget.Turn) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(turns))
	for _, t := range turns {
		cmds = append(cmds, func() tea.Msg {
			return turnSettledMsg{turn: t, result: m.widget.Exchange(m.ctx, t)}
		})
	}
	return tea.Batch(cmds...)
}

func (m *chatModel) resize(width, height int) {
	m.width = width
	m.height = height

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-ansi.StringWidth(m.input.Prompt)-1, 1)
	m.help.Width = width

	m.ScrollToBottom()
}

func (m *chatModel) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *chatModel) renderLog() string {
	msgs := m.widget.Log().Messages()
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *chatModel) renderMessage(msg chatlog.Message) string {
	width := max(m.viewport.Width, 1)

	if msg.Sender == chatlog.SenderUser {
		return cliui.UserStyle.Render("you") + "\n" + ansi.Wordwrap(msg.Text, width, " ")
	}

	label := cliui.BotStyle.Render("bot")
	switch {
	case msg.Pending:
		return label + "\n" + cliui.PendingStyle.Render(msg.Text)
	case msg.Text == widget.FailureText:
		return label + "\n" + cliui.ErrorStyle.Render(msg.Text)
	case m.markdown:
		rendered, err := cliui.RenderMarkdown(msg.Text, width)
		if err == nil {
			return label + "\n" + strings.Trim(rendered, "\n")
		}
	}
	return label + "\n" + ansi.Wordwrap(msg.Text, width, " ")
}
