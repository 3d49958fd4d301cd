package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/murmurware/voice-relay/backend/internal/provider"
)

type fakeAssemblyAI struct {
	mux         *http.ServeMux
	uploads     int
	polls       int
	pollReplies []string // status per poll, in order
	pollError   string
}

func newFakeAssemblyAI(t *testing.T) (*fakeAssemblyAI, *httptest.Server) {
	t.Helper()
	f := &fakeAssemblyAI{mux: http.NewServeMux()}
	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)

	f.mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.uploads++
		json.NewEncoder(w).Encode(map[string]string{"upload_url": server.URL + "/stored/clip"})
	})

	f.mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload["audio_url"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "queued"})
	})

	f.mux.HandleFunc("/v2/transcript/tr-1", func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if f.polls < len(f.pollReplies) {
			status = f.pollReplies[f.polls]
		}
		f.polls++
		resp := map[string]string{"id": "tr-1", "status": status}
		if status == "completed" {
			resp["text"] = "Hello"
		}
		if status == "error" {
			resp["error"] = f.pollError
		}
		json.NewEncoder(w).Encode(resp)
	})

	return f, server
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient("test-key",
		WithBaseURL(server.URL),
		WithPollInterval(time.Millisecond),
		WithMaxPolls(5),
	)
}

func TestTranscribeCompletesAfterPolling(t *testing.T) {
	fake, server := newFakeAssemblyAI(t)
	fake.pollReplies = []string{"queued", "processing", "completed"}

	client := newTestClient(server)
	text, err := client.Transcribe(context.Background(), []byte("clip"))
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if text != "Hello" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if fake.uploads != 1 {
		t.Fatalf("expected one upload, got %d", fake.uploads)
	}
	if fake.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", fake.polls)
	}
}

func TestTranscribeSurfacesProviderError(t *testing.T) {
	fake, server := newFakeAssemblyAI(t)
	fake.pollReplies = []string{"error"}
	fake.pollError = "audio too short"

	client := newTestClient(server)
	_, err := client.Transcribe(context.Background(), []byte("clip"))

	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if provErr.Name != "assemblyai" || provErr.Op != "poll" {
		t.Fatalf("unexpected error detail: %+v", provErr)
	}
	if !strings.Contains(provErr.Error(), "audio too short") {
		t.Fatalf("error should carry upstream detail: %v", provErr)
	}
}

func TestTranscribeTimesOutAfterMaxPolls(t *testing.T) {
	fake, server := newFakeAssemblyAI(t)
	fake.pollReplies = nil // always processing

	client := newTestClient(server)
	_, err := client.Transcribe(context.Background(), []byte("clip"))

	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(provErr.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", provErr)
	}
	if fake.polls != 5 {
		t.Fatalf("expected %d polls, got %d", 5, fake.polls)
	}
}

func TestTranscribeRejectsBadCredentials(t *testing.T) {
	_, server := newFakeAssemblyAI(t)

	client := NewClient("wrong-key", WithBaseURL(server.URL), WithPollInterval(time.Millisecond))
	_, err := client.Transcribe(context.Background(), []byte("clip"))

	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if provErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status, got %d", provErr.Status)
	}
}

func TestTranscribeHonorsContextCancellation(t *testing.T) {
	fake, server := newFakeAssemblyAI(t)
	fake.pollReplies = nil // never completes

	client := NewClient("test-key",
		WithBaseURL(server.URL),
		WithPollInterval(time.Second),
		WithMaxPolls(10),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Transcribe(ctx, []byte("clip"))
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
