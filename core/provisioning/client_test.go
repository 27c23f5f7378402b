package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newSessionServer(t *testing.T, create func(w http.ResponseWriter)) (*httptest.Server, *[]string) {
	t.Helper()

	var ended []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "Bearer key-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case createSessionPath:
			create(w)
		case endSessionPath:
			var body struct {
				SessionID string `json:"session_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ended = append(ended, body.SessionID)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &ended
}

func TestCreateSessionReturnsCredentials(t *testing.T) {
	server, _ := newSessionServer(t, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"session_id":"s-1","connection_url":"wss://rt.example/ws","connection_token":"tok"}`))
	})
	client := NewClient(server.URL+"/", WithAPIKey("key-1"))

	credentials, err := client.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("expected credentials, got %v", err)
	}
	if credentials.SessionID != "s-1" || credentials.ConnectionURL != "wss://rt.example/ws" || credentials.ConnectionToken != "tok" {
		t.Fatalf("unexpected credentials %+v", credentials)
	}
}

func TestCreateSessionRejectsIncompleteCredentials(t *testing.T) {
	for name, body := range map[string]string{
		"missing token": `{"session_id":"s-1","connection_url":"wss://rt.example/ws"}`,
		"missing url":   `{"session_id":"s-1","connection_token":"tok"}`,
		"empty body":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			server, _ := newSessionServer(t, func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(body))
			})
			client := NewClient(server.URL, WithAPIKey("key-1"))

			if _, err := client.CreateSession(context.Background()); !errors.Is(err, ErrIncompleteCredentials) {
				t.Fatalf("expected ErrIncompleteCredentials, got %v", err)
			}
		})
	}
}

func TestCreateSessionReportsHTTPFailure(t *testing.T) {
	server, _ := newSessionServer(t, func(w http.ResponseWriter) {})
	client := NewClient(server.URL, WithAPIKey("wrong"))

	_, err := client.CreateSession(context.Background())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected unauthorized failure, got %v", err)
	}
	if errors.Is(err, ErrIncompleteCredentials) {
		t.Fatalf("expected transport failure to be distinct from incomplete credentials")
	}
}

func TestEndSessionPostsSessionID(t *testing.T) {
	server, ended := newSessionServer(t, func(w http.ResponseWriter) {})
	client := NewClient(server.URL, WithAPIKey("key-1"))

	if err := client.EndSession(context.Background(), "s-1"); err != nil {
		t.Fatalf("expected end session to succeed, got %v", err)
	}
	if len(*ended) != 1 || (*ended)[0] != "s-1" {
		t.Fatalf("expected session s-1 to be ended, got %v", *ended)
	}
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("AVATAR_API_KEY", "key-1")
	server, ended := newSessionServer(t, func(w http.ResponseWriter) {})

	if err := NewClient(server.URL).EndSession(context.Background(), "s-2"); err != nil {
		t.Fatalf("expected environment API key to be used, got %v", err)
	}
	if len(*ended) != 1 {
		t.Fatalf("expected one ended session, got %v", *ended)
	}
}
