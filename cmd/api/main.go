package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/murmurware/voice-relay/backend/internal/config"
	"github.com/murmurware/voice-relay/backend/internal/handler"
	"github.com/murmurware/voice-relay/backend/internal/handler/ws"
	voiceModel "github.com/murmurware/voice-relay/backend/internal/model/voice"
	"github.com/murmurware/voice-relay/backend/internal/service/ai"
	"github.com/murmurware/voice-relay/backend/internal/service/audio"
	"github.com/murmurware/voice-relay/backend/internal/service/relay"
	"github.com/murmurware/voice-relay/backend/internal/service/session"
	"github.com/murmurware/voice-relay/backend/internal/service/stt"
	"github.com/murmurware/voice-relay/backend/internal/service/tts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessions := session.NewStore(cfg.Relay.SessionMaxCount)

	audioStore, err := audio.NewStore(cfg.Relay.StaticDir)
	if err != nil {
		log.Fatalf("failed to prepare static dir: %v", err)
	}

	voiceStore := voiceModel.NewMemoryStore(voiceModel.Seed())

	// Initialize the transcription provider
	var transcriber relay.Transcriber
	if cfg.STT.Enabled() {
		transcriber = stt.NewClient(cfg.STT.APIKey,
			stt.WithBaseURL(cfg.STT.BaseURL),
			stt.WithPollInterval(cfg.STT.PollInterval),
			stt.WithMaxPolls(cfg.STT.MaxPolls),
		)
		log.Println("STT provider initialized successfully")
	} else {
		log.Println("ASSEMBLYAI_API_KEY not configured, voice transcription disabled")
	}

	// Initialize the synthesis provider
	var synthesizer relay.Synthesizer
	if cfg.TTS.Enabled() {
		ttsClient := tts.NewClient(cfg.TTS.APIKey,
			tts.WithBaseURL(cfg.TTS.BaseURL),
			tts.WithVoiceID(cfg.TTS.VoiceID),
		)
		synthesizer = tts.NewSpeaker(ttsClient, audioStore)
		go refreshVoiceCatalog(ctx, ttsClient, voiceStore)
		log.Println("TTS provider initialized successfully")
	} else {
		log.Println("MURF_API_KEY not configured, speech synthesis disabled")
	}

	// Initialize the reply model
	var responder relay.Responder
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without reply generation - check the Ark model environment variables")
		} else {
			responder = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping reply model initialization")
	}

	hub := ws.NewHub()

	relayService := relay.NewService(sessions, transcriber, responder, synthesizer,
		relay.WithPublisher(hub),
		relay.WithProviderTimeout(cfg.Relay.ProviderTimeout),
	)

	router := handler.NewRouter(sessions, voiceStore, relayService, aiService, audioStore, hub)

	startServer(ctx, cfg.Server, router)
}

// refreshVoiceCatalog replaces the seeded catalog with the provider's live
// voice list once at startup. The seed stays in place if the call fails.
func refreshVoiceCatalog(ctx context.Context, client *tts.Client, store *voiceModel.MemoryStore) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	catalog, err := client.Voices(fetchCtx)
	if err != nil {
		log.Printf("warning: failed to refresh voice catalog: %v", err)
		return
	}
	store.Replace(catalog)
	log.Printf("voice catalog refreshed: %d voices", len(catalog))
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Voice relay backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
