package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/murmurware/voice-relay/backend/internal/handler/history"
	"github.com/murmurware/voice-relay/backend/internal/handler/stream"
	voiceHandler "github.com/murmurware/voice-relay/backend/internal/handler/voice"
	"github.com/murmurware/voice-relay/backend/internal/handler/voices"
	"github.com/murmurware/voice-relay/backend/internal/handler/ws"
	middlewarePkg "github.com/murmurware/voice-relay/backend/internal/middleware"
	voiceModel "github.com/murmurware/voice-relay/backend/internal/model/voice"
	aiService "github.com/murmurware/voice-relay/backend/internal/service/ai"
	"github.com/murmurware/voice-relay/backend/internal/service/audio"
	"github.com/murmurware/voice-relay/backend/internal/service/relay"
	"github.com/murmurware/voice-relay/backend/internal/service/session"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *session.Store, voiceStore voiceModel.Store, relaySvc *relay.Service, aiSvc *aiService.Service, audioStore *audio.Store, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	voiceH := voiceHandler.New(relaySvc, audioStore.FallbackURL())
	historyH := history.New(sessions)
	voicesH := voices.New(voiceStore)

	// Create stream handler for typed chat if the model is available
	var streamHandler *stream.Handler
	if aiSvc != nil {
		streamHandler = stream.New(aiSvc, relaySvc)
	}

	voiceH.RegisterRoutes(r)
	historyH.RegisterRoutes(r)
	voicesH.RegisterRoutes(r)
	hub.RegisterRoutes(r)

	r.Get("/llm/stream/{sessionID}", func(w http.ResponseWriter, req *http.Request) {
		sessionID := chi.URLParam(req, "sessionID")
		userMessage := req.URL.Query().Get("message")

		if streamHandler == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "llm streaming unavailable")
			return
		}
		if userMessage == "" {
			utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
			return
		}

		if err := streamHandler.HandleStreamRequest(req.Context(), w, sessionID, userMessage); err != nil {
			log.Printf("[stream] error handling request: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Generated clips (and the fallback clip) are served straight off disk.
	fileServer := http.FileServer(http.Dir(audioStore.Dir()))
	r.Handle(audio.URLPrefix+"/*", http.StripPrefix(audio.URLPrefix+"/", fileServer))

	return r
}
