package textchannel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/messages"
	"github.com/koscakluka/ema-avatar/core/transport"
)

type stubConnection struct {
	mu     sync.Mutex
	sent   []string
	topics []string

	err     error
	started chan struct{}
	release chan struct{}
}

func (c *stubConnection) SendText(ctx context.Context, text string, opts ...transport.SendOption) error {
	options := transport.NewSendOptions(opts...)

	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.topics = append(c.topics, options.Topic)
	c.mu.Unlock()

	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	return c.err
}

func (c *stubConnection) PublishTrack(context.Context, transport.LocalTrack, ...transport.PublishOption) error {
	return nil
}
func (c *stubConnection) UnpublishTrack(context.Context, transport.LocalTrack) error { return nil }
func (c *stubConnection) Disconnect() error                                          { return nil }

func (c *stubConnection) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func connectedTo(conn transport.Connection) ConnectionSource {
	return func() (transport.Connection, error) { return conn, nil }
}

func TestSendRecordsUserMessageAndTransmitsOnChatTopic(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{}
	channel := NewChannel(log, connectedTo(conn))

	if err := channel.Send(context.Background(), "  Hi  "); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	got := log.Messages()
	if len(got) != 1 || got[0].Sender != messages.SenderUser || got[0].Text != "Hi" {
		t.Fatalf("expected a single user message \"Hi\", got %+v", got)
	}
	if sent := conn.sentTexts(); len(sent) != 1 || sent[0] != "Hi" || conn.topics[0] != transport.TopicChat {
		t.Fatalf("expected \"Hi\" on chat topic, got %v on %v", sent, conn.topics)
	}
}

func TestSendRejectsBlankInputWithoutSideEffects(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{}
	channel := NewChannel(log, connectedTo(conn))

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := channel.Send(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", text, err)
		}
	}

	if log.Len() != 0 {
		t.Fatalf("expected empty log, got %d messages", log.Len())
	}
	if sent := conn.sentTexts(); len(sent) != 0 {
		t.Fatalf("expected no transmissions, got %v", sent)
	}
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{started: make(chan struct{}, 1), release: make(chan struct{})}
	channel := NewChannel(log, connectedTo(conn))

	firstDone := make(chan error, 1)
	go func() { firstDone <- channel.Send(context.Background(), "Hi") }()

	select {
	case <-conn.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the first send")
	}

	if err := channel.Send(context.Background(), "Hi"); !errors.Is(err, ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}
	if log.Len() != 1 {
		t.Fatalf("expected one user message while the first send is pending, got %d", log.Len())
	}

	close(conn.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("expected first send to succeed, got %v", err)
	}

	conn.started = nil
	if err := channel.Send(context.Background(), "again"); err != nil {
		t.Fatalf("expected send after completion to succeed, got %v", err)
	}
	if sent := conn.sentTexts(); len(sent) != 2 {
		t.Fatalf("expected two transmissions, got %v", sent)
	}
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{err: errors.New("ack timeout")}
	channel := NewChannel(log, connectedTo(conn))

	err := channel.Send(context.Background(), "Hi")

	var failure *SendFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected SendFailure, got %v", err)
	}
	got := log.Messages()
	if len(got) != 2 {
		t.Fatalf("expected user and system messages, got %+v", got)
	}
	if got[0].Sender != messages.SenderUser || got[0].Text != "Hi" {
		t.Fatalf("expected optimistic user message to remain, got %+v", got[0])
	}
	if got[1].Sender != messages.SenderSystem || !strings.Contains(got[1].Text, "ack timeout") {
		t.Fatalf("expected system error message, got %+v", got[1])
	}
}

func TestSendWithoutConnection(t *testing.T) {
	log := messages.NewLog()
	channel := NewChannel(log, func() (transport.Connection, error) { return nil, transport.ErrNotConnected })

	err := channel.Send(context.Background(), "Hi")
	if !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected failure wrapping ErrNotConnected, got %v", err)
	}
	if last, _ := log.Last(); last.Sender != messages.SenderSystem || !strings.Contains(last.Text, "not connected") {
		t.Fatalf("expected not connected system message, got %+v", last)
	}
}

func TestSendVoiceTransmitsPlaceholder(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{}
	var received *audio.Clip
	channel := NewChannel(log, connectedTo(conn), WithVoiceClipCallback(func(clip *audio.Clip) { received = clip }))

	clip, err := audio.EncodeWAV(make([]byte, 32000), audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("failed to encode clip: %v", err)
	}

	if err := channel.SendVoice(context.Background(), clip); err != nil {
		t.Fatalf("expected voice send to succeed, got %v", err)
	}

	if sent := conn.sentTexts(); len(sent) != 1 || sent[0] != VoicePlaceholder {
		t.Fatalf("expected placeholder payload, got %v", sent)
	}
	if received != clip {
		t.Fatalf("expected clip to be handed to the callback")
	}
	last, _ := log.Last()
	if last.Sender != messages.SenderUser || last.Text != "Voice message (1s)" {
		t.Fatalf("expected local voice message entry, got %+v", last)
	}
}

func TestSendVoiceRejectsEmptyClip(t *testing.T) {
	log := messages.NewLog()
	conn := &stubConnection{}
	channel := NewChannel(log, connectedTo(conn))

	if err := channel.SendVoice(context.Background(), &audio.Clip{}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if log.Len() != 0 || len(conn.sentTexts()) != 0 {
		t.Fatalf("expected no side effects for an empty clip")
	}
}
