package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

func TestClient_SendsTokenHeaderWithGET(t *testing.T) {
	var gotMethod, gotToken, gotQuery string
	var gotBody int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotToken = r.Header.Get(TokenHeader)
		gotQuery = r.URL.RawQuery
		gotBody = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp := NewClient().Check(context.Background(), server.URL, "RGAPI-abc", time.Second)
	if resp.Error != nil {
		t.Fatalf("Check() error = %v", resp.Error)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if gotToken != "RGAPI-abc" {
		t.Errorf("%s = %q, want %q", TokenHeader, gotToken, "RGAPI-abc")
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
	if gotBody > 0 {
		t.Errorf("content length = %d, want no body", gotBody)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestClient_NonOKStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp := NewClient().Check(context.Background(), server.URL, "RGAPI-abc", time.Second)
	if resp.Error != nil {
		t.Fatalf("Check() error = %v", resp.Error)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	resp := NewClient().Check(context.Background(), server.URL, "RGAPI-abc", 50*time.Millisecond)
	if resp.Error == nil {
		t.Fatal("Check() expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Check() took %v, timeout not enforced", elapsed)
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resp := NewClient().Check(context.Background(), url, "RGAPI-abc", time.Second)
	if resp.Error == nil {
		t.Fatal("Check() expected error for closed server")
	}
	if !strings.Contains(resp.Error.Error(), "request failed") {
		t.Errorf("error = %v, want 'request failed'", resp.Error)
	}
}

func TestClient_InvalidURL(t *testing.T) {
	resp := NewClient().Check(context.Background(), "://bad", "RGAPI-abc", time.Second)
	if resp.Error == nil || !strings.Contains(resp.Error.Error(), "failed to create request") {
		t.Errorf("error = %v, want 'failed to create request'", resp.Error)
	}
}

// TestClient_MalformedResponse verifies that a body cut short mid-stream is
// reported as a transport error.
func TestClient_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	resp := NewClient().Check(context.Background(), server.URL, "RGAPI-abc", time.Second)
	if resp.Error == nil {
		t.Fatal("Check() expected error for truncated body")
	}
	if !strings.Contains(resp.Error.Error(), "failed to read response body") {
		t.Errorf("error = %v, want body read failure", resp.Error)
	}
}

// TestClient_ConnectionReuse verifies that sequential checks reuse the
// pooled connection.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient()

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Check(ctx, server.URL, "RGAPI-abc", 5*time.Second)
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	if reusedCount < numRequests-2 {
		t.Errorf("expected at least %d reused connections, got %d", numRequests-2, reusedCount)
	}
}

func TestClient_Close(t *testing.T) {
	client := NewClient()
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close()
}

func TestNewClientWith_Nil(t *testing.T) {
	if c := NewClientWith(nil); c == nil || c.httpClient == nil {
		t.Fatal("NewClientWith(nil) should fall back to a default client")
	}
}
