package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesFileAndReturnsURL(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}

	url, err := store.Save([]byte("mp3-bytes"), "mp3")
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if !strings.HasPrefix(url, URLPrefix+"/") || !strings.HasSuffix(url, ".mp3") {
		t.Fatalf("unexpected url %q", url)
	}

	name := strings.TrimPrefix(url, URLPrefix+"/")
	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}

	first, err := store.Save([]byte("a"), "")
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	second, err := store.Save([]byte("b"), "")
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique names, got %q twice", first)
	}
}

func TestFallbackURL(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	if got := store.FallbackURL(); got != "/static/fallback.mp3" {
		t.Fatalf("unexpected fallback url %q", got)
	}
}
