package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
)

func newTestClient(url string) *Client {
	return New(Options{BaseURL: url, Model: "test-model", Timeout: 5 * time.Second})
}

func TestGenerateReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}]}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestGenerateRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), nil)
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), nil)
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateBadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), nil)
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("4xx must not be retryable: %v", err)
	}
}

func TestGenerateUpstreamErrorBodyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), nil)
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGenerateTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Model: "test-model", Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), nil)
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("expected transient error on timeout, got %v", err)
	}
}

func TestGenerateStreamCollectsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Take \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a breath.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var deltas []string
	full, err := newTestClient(srv.URL).GenerateStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "Take a breath." {
		t.Fatalf("unexpected full text: %q", full)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %v", deltas)
	}
}

func TestGenerateStreamTruncationIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"reply\"}}]}\n\n")
		// Connection closes cleanly with no [DONE] and no finish_reason.
	}))
	defer srv.Close()

	full, err := newTestClient(srv.URL).GenerateStream(context.Background(), nil, nil)
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("expected transient error for truncated stream, got text %q err %v", full, err)
	}
}

func TestGenerateStreamFinishReasonWithoutDoneIsComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"all of it\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
	}))
	defer srv.Close()

	full, err := newTestClient(srv.URL).GenerateStream(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "all of it" {
		t.Fatalf("unexpected full text: %q", full)
	}
}

func TestGenerateStreamErrorStatusIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateStream(context.Background(), nil, nil)
	if !errors.Is(err, model.ErrUpstreamTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
