package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	avatar "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/capture"
	"github.com/koscakluka/ema-avatar/core/messages"
)

const (
	headerHeight = 2
	footerHeight = 5

	placeholderText  = "Type a message and press enter..."
	placeholderVoice = "Voice mode is on, just talk"
)

// Session is the part of the manager the terminal client drives.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, text string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	EnableVoiceMode(ctx context.Context) error
	DisableVoiceMode(ctx context.Context) error
	SetLoading(loading bool)
	Snapshot() avatar.Snapshot
}

type (
	snapshotMsg avatar.Snapshot
	actionErrMsg struct {
		action string
		err    error
	}
)

type model struct {
	session  Session
	snapshot avatar.Snapshot

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	ready         bool
	status        string
}

func newModel(session Session) model {
	input := textinput.New()
	input.Placeholder = placeholderText
	input.CharLimit = 2000
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return model{
		session:  session,
		snapshot: session.Snapshot(),
		input:    input,
		spinner:  s,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.run("connect", m.session.Connect),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlD:
			if m.snapshot.State == avatar.StateConnected || m.snapshot.State == avatar.StateConnecting {
				return m, m.run("disconnect", m.session.Disconnect)
			}
			return m, m.run("connect", m.session.Connect)

		case tea.KeyCtrlV:
			if _, ok := m.snapshot.CaptureMode.(capture.ModeContinuous); ok {
				return m, m.run("disable voice mode", m.session.DisableVoiceMode)
			}
			return m, m.run("enable voice mode", m.session.EnableVoiceMode)

		case tea.KeyCtrlR:
			if _, ok := m.snapshot.CaptureMode.(capture.ModePushToTalk); ok {
				return m, m.run("send recording", m.session.StopRecording)
			}
			return m, m.run("start recording", m.session.StartRecording)

		case tea.KeyEnter:
			if m.voiceMode() {
				return m, nil
			}
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.send(text)
		}

		if !m.voiceMode() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		height := max(msg.Height-headerHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-6, 10)
		m.refreshHistory()

	case snapshotMsg:
		m.snapshot = avatar.Snapshot(msg)
		if m.voiceMode() {
			m.input.Blur()
			m.input.Placeholder = placeholderVoice
		} else {
			m.input.Focus()
			m.input.Placeholder = placeholderText
		}
		m.refreshHistory()

	case actionErrMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "Starting..."
	}

	state := string(m.snapshot.State)
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("Avatar"),
		" ",
		stateStyles[state].Render(state),
		" ",
		helpStyle.Render(m.modeLabel()),
	)

	typing := ""
	if m.snapshot.Pending {
		typing = m.spinner.View() + " avatar is typing..."
	}

	help := "enter send • ctrl+r record • ctrl+v voice mode • ctrl+d connect/disconnect • esc quit"
	if m.status != "" {
		help = m.status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		typing,
		inputStyle.Render(m.input.View()),
		helpStyle.Render(help),
	)
}

func (m model) voiceMode() bool {
	_, ok := m.snapshot.CaptureMode.(capture.ModeContinuous)
	return ok
}

func (m model) modeLabel() string {
	switch m.snapshot.CaptureMode.(type) {
	case capture.ModePushToTalk:
		return "● recording"
	case capture.ModeContinuous:
		return "● voice mode"
	default:
		return ""
	}
}

func (m *model) refreshHistory() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.snapshot.Messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m model) run(action string, f func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionErrMsg{action: action, err: f(context.Background())}
	}
}

func (m model) send(text string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.SetLoading(true)
		defer session.SetLoading(false)
		return actionErrMsg{action: "send", err: session.Send(context.Background(), text)}
	}
}

func renderMessages(history []messages.Message, width int) string {
	if len(history) == 0 {
		return systemStyle.Render("No messages yet.")
	}

	wrap := max(width-2, 10)
	var b strings.Builder
	for i, message := range history {
		if i > 0 {
			b.WriteString("\n")
		}

		var label string
		switch message.Sender {
		case messages.SenderUser:
			label = userStyle.Render("You")
		case messages.SenderAvatar:
			label = avatarStyle.Render("Avatar")
		default:
			b.WriteString(systemStyle.Render(wordwrap.String("· "+message.Text, wrap)))
			b.WriteString("\n")
			continue
		}

		b.WriteString(label + " " + helpStyle.Render(message.Timestamp.Format("15:04")) + "\n")
		b.WriteString(wordwrap.String(message.Text, wrap))
		b.WriteString("\n")
	}
	return b.String()
}
