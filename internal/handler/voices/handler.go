package voices

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmurware/voice-relay/backend/internal/model/voice"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// Handler exposes the synthesizer voice catalog.
type Handler struct {
	store voice.Store
}

// New creates the voices handler.
func New(store voice.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes wires the catalog endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voices", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"voices": h.store.List(),
	})
}
