package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/murmurware/voice-relay/backend/internal/model/chat"
	"github.com/murmurware/voice-relay/backend/internal/service/relay"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// Generator is the streaming surface of the reply model. The AI service
// satisfies it; tests use fakes.
type Generator interface {
	StreamingEnabled() bool
	Stream(ctx context.Context, history []chat.Turn, utterance string) (*schema.StreamReader[*schema.Message], error)
}

// Turner runs typed exchanges through the relay so SSE turns get the same
// per-session serialization and history bookkeeping as voice turns.
type Turner interface {
	TextTurn(ctx context.Context, sessionID, text string) (*relay.TurnResult, error)
	StreamTurn(ctx context.Context, sessionID, text string, fn relay.ReplyFunc) (*relay.TurnResult, error)
}

// Handler streams LLM replies for typed messages via Server-Sent Events.
type Handler struct {
	generator Generator
	relay     Turner
}

// New creates the stream handler.
func New(generator Generator, relaySvc Turner) *Handler {
	return &Handler{
		generator: generator,
		relay:     relaySvc,
	}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest streams a reply for one typed message.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	result, err := h.dispatchReply(ctx, w, flusher, sessionID, userMessage)
	if err != nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", Error: err.Error()})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[sse] completed reply for session=%s length=%d", sessionID, len(result.Reply))
	return nil
}

// dispatchReply hands the turn to the relay, which holds the session lock
// across both history appends.
func (h *Handler) dispatchReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID, userMessage string) (*relay.TurnResult, error) {
	if h.generator.StreamingEnabled() {
		return h.relay.StreamTurn(ctx, sessionID, userMessage,
			func(ctx context.Context, history []chat.Turn, utterance string) (string, error) {
				return h.streamReply(ctx, w, flusher, sessionID, history, utterance)
			})
	}

	result, err := h.relay.TextTurn(ctx, sessionID, userMessage)
	if err != nil {
		return nil, err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Reply,
	})
	return result, nil
}

func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, history []chat.Turn, userMessage string) (string, error) {
	stream, err := h.generator.Stream(ctx, history, userMessage)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response.Content, nil
}
