// Package websocket implements the session transport over a single websocket:
// JSON text frames for signalling and topics, binary frames for media.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/transport"
)

const defaultConnectTimeout = 15 * time.Second

var _ transport.Transport = (*Transport)(nil)

type Transport struct {
	dialer         *websocket.Dialer
	connectTimeout time.Duration
}

type TransportOption func(*Transport)

func WithDialer(dialer *websocket.Dialer) TransportOption {
	return func(t *Transport) {
		if dialer != nil {
			t.dialer = dialer
		}
	}
}

func WithConnectTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		if timeout > 0 {
			t.connectTimeout = timeout
		}
	}
}

func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		dialer:         websocket.DefaultDialer,
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Connect(ctx context.Context, url, token string, opts ...transport.ConnectOption) (transport.Connection, error) {
	ctx, span := tracer.Start(ctx, "connect transport")
	defer span.End()

	options := transport.NewConnectOptions(opts...)

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.connectTimeout)
		defer cancel()
	}

	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := t.dialer.DialContext(dialCtx, url, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		} else {
			err = fmt.Errorf("websocket dial failed: %w", err)
		}
		span.RecordError(err)
		return nil, err
	}

	conn := newConnection(ws, options)
	if err := conn.writeJSON(HelloFrame{Type: frameHello, AutoSubscribe: options.AutoSubscribe}); err != nil {
		_ = ws.Close()
		err = fmt.Errorf("failed to send hello: %w", err)
		span.RecordError(err)
		return nil, err
	}

	go conn.readLoop()
	return conn, nil
}
