package ai

import (
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/murmurware/voice-relay/backend/internal/model/chat"
)

func TestBuildHistoryMessagesPreservesOrderAndRoles(t *testing.T) {
	history := []chat.Turn{
		{Role: chat.RoleUser, Text: "Hello"},
		{Role: chat.RoleAssistant, Text: "Hi there!"},
		{Role: chat.RoleUser, Text: "How are you?"},
	}

	messages := buildHistoryMessages(history)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Role != schema.User || messages[0].Content != "Hello" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != schema.Assistant || messages[1].Content != "Hi there!" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
	if messages[2].Role != schema.User || messages[2].Content != "How are you?" {
		t.Fatalf("unexpected third message: %+v", messages[2])
	}
}

func TestBuildHistoryMessagesEmpty(t *testing.T) {
	if got := buildHistoryMessages(nil); got != nil {
		t.Fatalf("expected nil for empty history, got %v", got)
	}
}

func TestBuildChainInputCarriesQuery(t *testing.T) {
	input := buildChainInput(nil, "How are you?")
	if input["query"] != "How are you?" {
		t.Fatalf("unexpected query %v", input["query"])
	}
	if _, ok := input["history"]; !ok {
		t.Fatal("input must carry a history key")
	}
}
