package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionDataClient_FetchSessionData_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Session-ID"); got != "ext-123" {
			t.Errorf("expected X-Session-ID ext-123, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email":"a@b.com","name":"Ana","picture":"http://p","session_token":"tok-1"}`))
	}))
	defer server.Close()

	client := NewSessionDataClient(SessionDataClientConfig{URL: server.URL})
	data, err := client.FetchSessionData(context.Background(), "ext-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Email != "a@b.com" || data.Name != "Ana" || data.Picture != "http://p" || data.SessionToken != "tok-1" {
		t.Errorf("unexpected session data: %+v", data)
	}
}

func TestSessionDataClient_FetchSessionData_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid"}`))
	}))
	defer server.Close()

	client := NewSessionDataClient(SessionDataClientConfig{URL: server.URL})
	if _, err := client.FetchSessionData(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSessionDataClient_FetchSessionData_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewSessionDataClient(SessionDataClientConfig{URL: server.URL})
	if _, err := client.FetchSessionData(context.Background(), "x"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSessionDataClient_FetchSessionData_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewSessionDataClient(SessionDataClientConfig{URL: server.URL, Timeout: 20 * time.Millisecond})
	if _, err := client.FetchSessionData(context.Background(), "x"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewSessionDataClient_Defaults(t *testing.T) {
	client := NewSessionDataClient(SessionDataClientConfig{})
	if client.config.URL != defaultSessionDataURL {
		t.Errorf("expected default URL, got %q", client.config.URL)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", client.httpClient.Timeout)
	}
}

func TestNewSessionDataClient_CustomHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	client := NewSessionDataClient(SessionDataClientConfig{HTTPClient: custom, Timeout: time.Minute})
	if client.httpClient != custom {
		t.Error("expected custom HTTP client to be used")
	}
}
