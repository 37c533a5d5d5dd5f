package commands

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-sales/core"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/telephony"
	"github.com/koscakluka/ema-sales/core/telephony/twilio"
	"github.com/muesli/reflow/wordwrap"
)

type consoleStyles struct {
	title  lipgloss.Style
	agent  lipgloss.Style
	lead   lipgloss.Style
	status lipgloss.Style
	help   lipgloss.Style
}

func newConsoleStyles() consoleStyles {
	primary := lipgloss.Color("#00ff9f")
	dim := lipgloss.Color("#6e7681")
	return consoleStyles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1),
		agent:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		lead:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff71ce")),
		status: lipgloss.NewStyle().Italic(true).Foreground(dim),
		help:   lipgloss.NewStyle().Foreground(dim),
	}
}

// directiveMsg carries the orchestrator's answer back into the update loop.
type directiveMsg telephony.Directive

type consoleModel struct {
	ctx          context.Context
	conversation twilio.Conversation
	callID       string
	lead         leads.Lead

	viewport viewport.Model
	input    textinput.Model
	styles   consoleStyles
	lines    []string
	width    int
	height   int

	waiting bool
	ended   bool
}

func newConsoleModel(ctx context.Context, conversation twilio.Conversation, callID string, lead leads.Lead) consoleModel {
	input := textinput.New()
	input.Placeholder = "Say something as " + lead.Name
	input.Focus()

	return consoleModel{
		ctx:          ctx,
		conversation: conversation,
		callID:       callID,
		lead:         lead,
		viewport:     viewport.New(80, 20),
		input:        input,
		styles:       newConsoleStyles(),
		waiting:      true,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start())
}

func (m consoleModel) start() tea.Cmd {
	return func() tea.Msg {
		return directiveMsg(m.conversation.Start(m.ctx, orchestration.StartRequest{CallID: m.callID, LeadID: m.lead.ID}))
	}
}

func (m consoleModel) respond(utterance string) tea.Cmd {
	return func() tea.Msg {
		return directiveMsg(m.conversation.HandleTurn(m.ctx, orchestration.TurnRequest{
			CallID:    m.callID,
			LeadID:    m.lead.ID,
			Utterance: utterance,
		}))
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.ended {
				return m, tea.Quit
			}
			if m.waiting {
				return m, nil
			}
			utterance := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if utterance == "" {
				m.addLine(m.styles.status.Render("(silence)"))
			} else {
				m.addLine(m.styles.lead.Render(m.lead.Name+":") + " " + utterance)
			}
			m.waiting = true
			return m, m.respond(utterance)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case directiveMsg:
		m.waiting = false
		m.showDirective(telephony.Directive(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) showDirective(directive telephony.Directive) {
	agent := m.styles.agent.Render("Agent:")
	m.addLine(agent + " " + directive.Say)
	if directive.Prompt != "" {
		m.addLine(agent + " " + directive.Prompt)
	}
	if directive.Hangup {
		m.ended = true
		m.input.Blur()
		m.addLine(m.styles.status.Render("(call ended, press enter to exit)"))
	}
}

func (m *consoleModel) addLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *consoleModel) refresh() {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	wrapped := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		wrapped = append(wrapped, wordwrap.String(line, width))
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
	m.viewport.GotoBottom()
}

func (m consoleModel) View() string {
	status := "listening"
	switch {
	case m.ended:
		status = "ended"
	case m.waiting:
		status = "thinking"
	}

	header := m.styles.title.Render("salescall console") + m.styles.help.Render("["+m.lead.Name+", "+status+"]")
	help := m.styles.help.Render("enter: reply (empty is silence) • esc: quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), help)
}
