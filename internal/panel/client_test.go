package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestSendPostsEnvelope(t *testing.T) {
	var got envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bot" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "secret", zap.NewNop())
	if err := client.Send(context.Background(), "newTicket", map[string]string{"id": "t_1"}); err != nil {
		t.Fatal(err)
	}

	if got.APIKey != "secret" || got.Action != "newTicket" {
		t.Fatalf("envelope = %+v", got)
	}
	if !client.Connected() {
		t.Fatal("successful send should mark the panel connected")
	}
}

func TestSendServerErrorMarksDisconnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "secret", zap.NewNop())
	client.SetConnected(true)

	if err := client.Send(context.Background(), "log", nil); err == nil {
		t.Fatal("5xx should surface as an error")
	}
	if client.Connected() {
		t.Fatal("5xx should mark the panel disconnected")
	}
}

func TestSendClientErrorCountsAsDelivered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "secret", zap.NewNop())
	if err := client.Send(context.Background(), "log", nil); err != nil {
		t.Fatalf("4xx should not be an error: %v", err)
	}
	if !client.Connected() {
		t.Fatal("4xx still proves the panel is reachable")
	}
}

func TestSendNoBaseURLIsNoop(t *testing.T) {
	client := New("", "secret", zap.NewNop())
	if err := client.Send(context.Background(), "log", nil); err != nil {
		t.Fatalf("no-panel mode should be silent: %v", err)
	}
}

func TestSendUnreachableMarksDisconnected(t *testing.T) {
	client := New("http://127.0.0.1:1", "secret", zap.NewNop())
	client.SetConnected(true)

	if err := client.Send(context.Background(), "log", nil); err == nil {
		t.Fatal("unreachable panel should error")
	}
	if client.Connected() {
		t.Fatal("unreachable panel should mark disconnected")
	}
}
