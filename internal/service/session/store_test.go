package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/murmurware/voice-relay/backend/internal/model/chat"
	"github.com/murmurware/voice-relay/backend/internal/service/session"
)

func TestHistoryAlternatesInAppendOrder(t *testing.T) {
	store := session.NewStore(8)
	ctx := context.Background()

	const turns = 5
	for i := 0; i < turns; i++ {
		store.Append(ctx, "abc", chat.RoleUser, fmt.Sprintf("question %d", i))
		store.Append(ctx, "abc", chat.RoleAssistant, fmt.Sprintf("answer %d", i))
	}

	history := store.History(ctx, "abc")
	if len(history) != 2*turns {
		t.Fatalf("expected %d turns, got %d", 2*turns, len(history))
	}

	for i, turn := range history {
		wantRole := chat.RoleUser
		if i%2 == 1 {
			wantRole = chat.RoleAssistant
		}
		if turn.Role != wantRole {
			t.Fatalf("turn %d: expected role %s, got %s", i, wantRole, turn.Role)
		}
	}
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	store := session.NewStore(8)

	history := store.History(context.Background(), "missing")
	if history == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(history))
	}
}

func TestHistoryReturnsIsolatedCopy(t *testing.T) {
	store := session.NewStore(8)
	ctx := context.Background()

	store.Append(ctx, "abc", chat.RoleUser, "Hello")

	first := store.History(ctx, "abc")
	first[0].Text = "corrupted"

	second := store.History(ctx, "abc")
	if second[0].Text != "Hello" {
		t.Fatalf("store exposed a mutable alias: got %q", second[0].Text)
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	store := session.NewStore(2)
	ctx := context.Background()

	store.Append(ctx, "a", chat.RoleUser, "one")
	store.Append(ctx, "b", chat.RoleUser, "two")
	// Touch "a" so "b" becomes the eviction candidate.
	store.Append(ctx, "a", chat.RoleAssistant, "one reply")
	store.Append(ctx, "c", chat.RoleUser, "three")

	if store.Len() != 2 {
		t.Fatalf("expected 2 sessions after eviction, got %d", store.Len())
	}
	if got := store.History(ctx, "b"); len(got) != 0 {
		t.Fatalf("expected session b evicted, found %d turns", len(got))
	}
	if got := store.History(ctx, "a"); len(got) != 2 {
		t.Fatalf("expected session a retained with 2 turns, got %d", len(got))
	}
	if got := store.History(ctx, "c"); len(got) != 1 {
		t.Fatalf("expected session c present with 1 turn, got %d", len(got))
	}
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	store := session.NewStore(64)
	ctx := context.Background()

	const sessions = 8
	const perSession = 50

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < perSession; j++ {
				store.Append(ctx, id, chat.RoleUser, fmt.Sprintf("msg %d", j))
			}
		}(fmt.Sprintf("session-%d", i))
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("session-%d", i)
		history := store.History(ctx, id)
		if len(history) != perSession {
			t.Fatalf("session %s: expected %d turns, got %d", id, perSession, len(history))
		}
		for j, turn := range history {
			if turn.Text != fmt.Sprintf("msg %d", j) {
				t.Fatalf("session %s: turn %d out of order: %q", id, j, turn.Text)
			}
		}
	}
}
