package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/murmurware/voice-relay/backend/internal/provider"
	"github.com/murmurware/voice-relay/backend/internal/service/audio"
)

type fakeMurf struct {
	mux        *http.ServeMux
	voiceCalls int
	lastText   string
	lastVoice  string
	generate   func(w http.ResponseWriter)
}

func newFakeMurf(t *testing.T) (*fakeMurf, *httptest.Server) {
	t.Helper()
	f := &fakeMurf{mux: http.NewServeMux()}
	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)

	f.mux.HandleFunc("/v1/speech/voices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.voiceCalls++
		json.NewEncoder(w).Encode([]map[string]string{
			{"voiceId": "en-US-natalie", "displayName": "Natalie", "locale": "en-US"},
			{"voiceId": "en-US-terrell", "displayName": "Terrell", "locale": "en-US"},
		})
	})

	f.mux.HandleFunc("/v1/speech/generate", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastText = payload["text"]
		f.lastVoice = payload["voiceId"]
		if f.generate != nil {
			f.generate(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"audioFile": server.URL + "/files/out.mp3"})
	})

	f.mux.HandleFunc("/files/out.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	})

	return f, server
}

func TestGenerateDownloadsAudio(t *testing.T) {
	fake, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL))

	data, err := client.Generate(context.Background(), "Hi there!")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected audio payload %q", data)
	}
	if fake.lastVoice != "en-US-natalie" {
		t.Fatalf("expected first catalog voice, got %q", fake.lastVoice)
	}
}

func TestGenerateCachesResolvedVoice(t *testing.T) {
	fake, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL))
	ctx := context.Background()

	if _, err := client.Generate(ctx, "first"); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if _, err := client.Generate(ctx, "second"); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if fake.voiceCalls != 1 {
		t.Fatalf("expected one voices call, got %d", fake.voiceCalls)
	}
}

func TestGenerateHonorsConfiguredVoice(t *testing.T) {
	fake, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL), WithVoiceID("en-UK-hazel"))

	if _, err := client.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if fake.lastVoice != "en-UK-hazel" {
		t.Fatalf("expected configured voice, got %q", fake.lastVoice)
	}
	if fake.voiceCalls != 0 {
		t.Fatalf("voices endpoint should not be called, got %d calls", fake.voiceCalls)
	}
}

func TestGenerateTruncatesLongText(t *testing.T) {
	fake, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL))

	long := strings.Repeat("a", MaxTextLen+500)
	if _, err := client.Generate(context.Background(), long); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if len(fake.lastText) != MaxTextLen {
		t.Fatalf("expected text truncated to %d chars, got %d", MaxTextLen, len(fake.lastText))
	}
}

func TestGenerateTruncatesOnRuneBoundary(t *testing.T) {
	fake, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL))

	// The multi-byte rune straddles the limit; a byte slice at MaxTextLen
	// would split it.
	long := strings.Repeat("a", MaxTextLen-1) + "世界"
	if _, err := client.Generate(context.Background(), long); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if !utf8.ValidString(fake.lastText) {
		t.Fatalf("truncated text is not valid UTF-8: %q", fake.lastText[len(fake.lastText)-4:])
	}
	if len(fake.lastText) > MaxTextLen {
		t.Fatalf("expected at most %d bytes, got %d", MaxTextLen, len(fake.lastText))
	}
	if len(fake.lastText) != MaxTextLen-1 {
		t.Fatalf("expected cut at the last rune boundary (%d bytes), got %d", MaxTextLen-1, len(fake.lastText))
	}
}

func TestGenerateSurfacesProviderError(t *testing.T) {
	fake, server := newFakeMurf(t)
	fake.generate = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}
	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Generate(context.Background(), "hello")

	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status, got %d", provErr.Status)
	}
}

func TestGenerateRejectsMissingAudioFile(t *testing.T) {
	fake, server := newFakeMurf(t)
	fake.generate = func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]string{})
	}
	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Generate(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "audioFile") {
		t.Fatalf("expected missing audioFile error, got %v", err)
	}
}

func TestSpeakerPersistsClip(t *testing.T) {
	_, server := newFakeMurf(t)
	client := NewClient("test-key", WithBaseURL(server.URL))

	store, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	speaker := NewSpeaker(client, store)

	url, err := speaker.Synthesize(context.Background(), "Hi there!")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if !strings.HasPrefix(url, audio.URLPrefix+"/") || !strings.HasSuffix(url, ".mp3") {
		t.Fatalf("unexpected audio url %q", url)
	}
}

func TestVoicesRejectsEmptyCatalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/speech/voices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient("test-key", WithBaseURL(server.URL))
	if _, err := client.Voices(context.Background()); err == nil {
		t.Fatal("expected error for empty voice list")
	}
}
