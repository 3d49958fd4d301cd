package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/murmurware/voice-relay/backend/internal/service/relay"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// FallbackReply is the uniform user-facing message presented whenever any
// pipeline stage fails. Stage classification stays in logs and the error
// field; the spoken experience is identical regardless of which stage broke.
const FallbackReply = "There is some problem in LLM, please try again after some time."

const maxUploadBytes = 32 << 20 // 32MB

// Orchestrator abstracts the relay pipeline for testing.
type Orchestrator interface {
	VoiceTurn(ctx context.Context, sessionID string, audio []byte) (*relay.TurnResult, error)
	EchoTurn(ctx context.Context, sessionID string, audio []byte) (*relay.TurnResult, error)
	QueryVoice(ctx context.Context, audio []byte) (*relay.TurnResult, error)
	QueryText(ctx context.Context, text string) (string, error)
	SpeakText(ctx context.Context, text string) (string, error)
}

// Handler exposes the voice pipeline over HTTP.
type Handler struct {
	relay       Orchestrator
	fallbackURL string
}

// New creates the voice handler.
func New(relaySvc Orchestrator, fallbackURL string) *Handler {
	return &Handler{
		relay:       relaySvc,
		fallbackURL: fallbackURL,
	}
}

// RegisterRoutes wires the voice endpoints. The path names mirror the
// browser client's expectations and are kept stable.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/voice/text", h.handleVoiceText)
	r.Post("/echobot/voice/{sessionID}", h.handleEchoVoice)
	r.Post("/gemini/voice/{sessionID}", h.handleAgentVoice)
	r.Post("/llm/query", h.handleLLMQuery)
	r.Get("/gemini", h.handleAgentProbe)
	r.Post("/gemini", h.handleAgentText)
}

// handleVoiceText speaks exactly the typed text back. No LLM, no history.
func (h *Handler) handleVoiceText(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	audioFile, err := h.relay.SpeakText(r.Context(), text)
	if err != nil {
		h.respondPipelineError(w, "/voice/text", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"reply":      text,
		"audio_file": audioFile,
	})
}

// handleEchoVoice transcribes the upload and speaks the transcript back.
func (h *Handler) handleEchoVoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	audio, ok := h.readAudio(w, r)
	if !ok {
		return
	}

	result, err := h.relay.EchoTurn(r.Context(), sessionID, audio)
	if err != nil {
		h.respondPipelineError(w, "/echobot/voice", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"transcript": result.Transcript,
		"audio_file": result.AudioFile,
	})
}

// handleAgentVoice runs the full STT -> LLM -> TTS pipeline with session
// history.
func (h *Handler) handleAgentVoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	audio, ok := h.readAudio(w, r)
	if !ok {
		return
	}

	result, err := h.relay.VoiceTurn(r.Context(), sessionID, audio)
	if err != nil {
		h.respondPipelineError(w, "/gemini/voice", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"transcript": result.Transcript,
		"reply":      result.Reply,
		"audio_file": result.AudioFile,
	})
}

// handleLLMQuery keeps the legacy dual-mode contract: JSON text in, text
// reply out; multipart audio in, session-less voice pipeline out.
func (h *Handler) handleLLMQuery(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		audio, ok := h.readAudio(w, r)
		if !ok {
			return
		}

		result, err := h.relay.QueryVoice(r.Context(), audio)
		if err != nil {
			h.respondPipelineError(w, "/llm/query", err)
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"transcript":   result.Transcript,
			"llm_response": result.Reply,
			"audio_file":   result.AudioFile,
		})
		return
	}

	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	reply, err := h.relay.QueryText(r.Context(), text)
	if err != nil {
		h.respondPipelineError(w, "/llm/query", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// handleAgentProbe answers the old GET liveness check.
func (h *Handler) handleAgentProbe(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "GET works. Use POST to send prompts.",
	})
}

// handleAgentText is the text-only prompt endpoint.
func (h *Handler) handleAgentText(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	reply, err := h.relay.QueryText(r.Context(), text)
	if err != nil {
		h.respondPipelineError(w, "/gemini", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// decodeText accepts {"text": ...} with {"prompt": ...} as a legacy alias.
func (h *Handler) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload struct {
		Text   string `json:"text"`
		Prompt string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondClientError(w, "invalid request body")
		return "", false
	}

	text := payload.Text
	if text == "" {
		text = payload.Prompt
	}
	if strings.TrimSpace(text) == "" {
		h.respondClientError(w, "text is required")
		return "", false
	}
	return text, true
}

// readAudio extracts the uploaded clip from the multipart form. The browser
// client posts the recording under "file"; "audio" is accepted as an alias.
func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondClientError(w, "failed to parse multipart form: "+err.Error())
		return nil, false
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("audio")
	}
	if err != nil {
		h.respondClientError(w, "audio file is required")
		return nil, false
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.respondClientError(w, "failed to read audio upload")
		return nil, false
	}
	return audio, true
}

// respondPipelineError maps orchestrator failures onto the uniform fallback
// body. Client-input errors stay 400; provider-stage failures become 502.
func (h *Handler) respondPipelineError(w http.ResponseWriter, route string, err error) {
	if errors.Is(err, relay.ErrEmptyAudio) || errors.Is(err, relay.ErrEmptyText) {
		h.respondClientError(w, err.Error())
		return
	}

	var stageErr *relay.StageError
	if errors.As(err, &stageErr) {
		log.Printf("[voice] %s stage=%s failed: %v", route, stageErr.Stage, stageErr.Err)
		utils.RespondJSON(w, http.StatusBadGateway, map[string]string{
			"error":      string(stageErr.Stage) + " failed",
			"detail":     stageErr.Err.Error(),
			"reply":      FallbackReply,
			"audio_file": h.fallbackURL,
		})
		return
	}

	log.Printf("[voice] %s unexpected error: %v", route, err)
	utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{
		"error":      "unexpected error",
		"reply":      FallbackReply,
		"audio_file": h.fallbackURL,
	})
}

func (h *Handler) respondClientError(w http.ResponseWriter, message string) {
	utils.RespondJSON(w, http.StatusBadRequest, map[string]string{
		"error":      message,
		"audio_file": h.fallbackURL,
	})
}
