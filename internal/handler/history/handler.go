package history

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmurware/voice-relay/backend/internal/service/session"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// Handler exposes stored transcripts, mainly for the browser UI and debugging.
type Handler struct {
	sessions *session.Store
}

// New creates the history handler.
func New(sessions *session.Store) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes wires the history endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history/{sessionID}", h.handleGetHistory)
}

// handleGetHistory returns the ordered transcript. Unknown sessions yield an
// empty transcript, not an error.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	turns := h.sessions.History(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"turns":     turns,
	})
}
