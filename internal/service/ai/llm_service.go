// Package ai wraps the chat model behind the reply pipeline. The chain is
// compiled once at startup: system prompt, full conversation history, then
// the new user utterance.
package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/murmurware/voice-relay/backend/internal/config"
	"github.com/murmurware/voice-relay/backend/internal/model/chat"
	"github.com/murmurware/voice-relay/backend/internal/provider"
)

const systemPrompt = "You are a helpful voice assistant. Continue the conversation naturally based on the history. Keep replies concise enough to be spoken aloud."

// Service encapsulates chat-model reply generation.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the AI service and compiles the reply chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled reports whether SSE streaming output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Generate implements relay.Responder: the reply is a function of the
// supplied history and utterance only. The whole transcript is forwarded,
// never a summary.
func (s *Service) Generate(ctx context.Context, history []chat.Turn, utterance string) (string, error) {
	response, err := s.chain.Invoke(ctx, buildChainInput(history, utterance))
	if err != nil {
		return "", provider.Wrap("ark", "generate", err)
	}

	log.Printf("[ai] generated reply history_turns=%d length=%d", len(history), len(response.Content))
	return response.Content, nil
}

// Stream yields the reply incrementally via the compiled chain.
func (s *Service) Stream(ctx context.Context, history []chat.Turn, utterance string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chain.Stream(ctx, buildChainInput(history, utterance))
	if err != nil {
		return nil, provider.Wrap("ark", "stream", err)
	}
	return stream, nil
}

func buildChainInput(history []chat.Turn, utterance string) map[string]any {
	return map[string]any{
		"history": buildHistoryMessages(history),
		"query":   utterance,
	}
}

func buildHistoryMessages(history []chat.Turn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return messages
}
