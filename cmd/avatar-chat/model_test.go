package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	avatar "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/capture"
	"github.com/koscakluka/ema-avatar/core/messages"
)

type stubSession struct {
	snapshot avatar.Snapshot
	sent     []string
	loading  []bool
	calls    []string
}

func (s *stubSession) Connect(context.Context) error {
	s.calls = append(s.calls, "connect")
	return nil
}
func (s *stubSession) Disconnect(context.Context) error {
	s.calls = append(s.calls, "disconnect")
	return nil
}
func (s *stubSession) Send(ctx context.Context, text string) error {
	s.sent = append(s.sent, text)
	return nil
}
func (s *stubSession) StartRecording(context.Context) error {
	s.calls = append(s.calls, "start recording")
	return nil
}
func (s *stubSession) StopRecording(context.Context) error {
	s.calls = append(s.calls, "stop recording")
	return nil
}
func (s *stubSession) EnableVoiceMode(context.Context) error {
	s.calls = append(s.calls, "enable voice mode")
	return nil
}
func (s *stubSession) DisableVoiceMode(context.Context) error {
	s.calls = append(s.calls, "disable voice mode")
	return nil
}
func (s *stubSession) SetLoading(loading bool)   { s.loading = append(s.loading, loading) }
func (s *stubSession) Snapshot() avatar.Snapshot { return s.snapshot }

func newTestModel(session *stubSession) model {
	m := newModel(session)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model)
}

func typeText(m model, text string) model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(model)
}

func TestEnterSendsTypedText(t *testing.T) {
	session := &stubSession{snapshot: avatar.Snapshot{State: avatar.StateConnected, CaptureMode: capture.ModeNone{}}}
	m := typeText(newTestModel(session), "Hi")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a send command")
	}
	if msg, ok := cmd().(actionErrMsg); !ok || msg.err != nil {
		t.Fatalf("expected successful send result, got %+v", msg)
	}

	if len(session.sent) != 1 || session.sent[0] != "Hi" {
		t.Fatalf("expected \"Hi\" to be sent, got %v", session.sent)
	}
	if len(session.loading) != 2 || !session.loading[0] || session.loading[1] {
		t.Fatalf("expected loading to wrap the send, got %v", session.loading)
	}
	if updated.(model).input.Value() != "" {
		t.Fatalf("expected input to be cleared")
	}
}

func TestVoiceModeDisablesTextInput(t *testing.T) {
	session := &stubSession{snapshot: avatar.Snapshot{State: avatar.StateConnected, CaptureMode: capture.ModeNone{}}}
	m := newTestModel(session)

	updated, _ := m.Update(snapshotMsg(avatar.Snapshot{State: avatar.StateConnected, CaptureMode: capture.ModeContinuous{}}))
	m = typeText(updated.(model), "ignored")

	if m.input.Value() != "" {
		t.Fatalf("expected text input to be ignored in voice mode, got %q", m.input.Value())
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("expected enter to do nothing in voice mode")
	}
	if m.input.Placeholder != placeholderVoice {
		t.Fatalf("expected voice mode placeholder, got %q", m.input.Placeholder)
	}
}

func TestShortcutsDriveCapture(t *testing.T) {
	session := &stubSession{snapshot: avatar.Snapshot{State: avatar.StateConnected, CaptureMode: capture.ModeNone{}}}
	m := newTestModel(session)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	cmd()
	updated, _ := m.Update(snapshotMsg(avatar.Snapshot{State: avatar.StateConnected, CaptureMode: capture.ModePushToTalk{}}))
	_, cmd = updated.(model).Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	cmd()
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlV})
	cmd()

	want := []string{"start recording", "stop recording", "enable voice mode"}
	if strings.Join(session.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, session.calls)
	}
}

func TestRenderMessages(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	rendered := renderMessages([]messages.Message{
		{ID: "1", Sender: messages.SenderUser, Text: "Hi", Timestamp: now},
		{ID: "2", Sender: messages.SenderAvatar, Text: "Hello there", Timestamp: now},
		{ID: "3", Sender: messages.SenderSystem, Text: "Disconnected", Timestamp: now},
	}, 40)

	for _, want := range []string{"You", "Hi", "Avatar", "Hello there", "Disconnected", "12:30"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("expected rendered history to contain %q, got %q", want, rendered)
		}
	}
}
