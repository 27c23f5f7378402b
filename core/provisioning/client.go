// Package provisioning talks to the backend session API that creates avatar
// sessions and hands out connection credentials.
package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	createSessionPath = "/session/create"
	endSessionPath    = "/session/end"
)

var ErrIncompleteCredentials = errors.New("session response is missing connection credentials")

// Credentials are valid for a single session and are never persisted.
type Credentials struct {
	SessionID       string `json:"session_id"`
	ConnectionURL   string `json:"connection_url"`
	ConnectionToken string `json:"connection_token"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a client for the session API at baseURL. Without
// [WithAPIKey] the key is read from AVATAR_API_KEY.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	if apiKey, ok := os.LookupEnv("AVATAR_API_KEY"); ok {
		client.apiKey = apiKey
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CreateSession asks the backend for a new session. A response without a
// connection URL or token fails with [ErrIncompleteCredentials].
func (c *Client) CreateSession(ctx context.Context) (*Credentials, error) {
	ctx, span := tracer.Start(ctx, "create session")
	defer span.End()

	var credentials Credentials
	if err := c.post(ctx, span, createSessionPath, struct{}{}, &credentials); err != nil {
		return nil, err
	}

	if credentials.ConnectionURL == "" || credentials.ConnectionToken == "" {
		err := ErrIncompleteCredentials
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", credentials.SessionID))
	return &credentials, nil
}

// EndSession tells the backend a session is over.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "end session")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	return c.post(ctx, span, endSessionPath, struct {
		SessionID string `json:"session_id"`
	}{SessionID: sessionID}, nil)
}

func (c *Client) post(ctx context.Context, span trace.Span, path string, body any, response any) error {
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if errorBody, err := io.ReadAll(resp.Body); err == nil && len(errorBody) > 0 {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		if errors.Is(err, io.EOF) {
			logger.Debug("empty session response", "path", path)
			return nil
		}
		return fail(fmt.Errorf("error decoding response: %w", err))
	}
	return nil
}
