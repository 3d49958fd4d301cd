package tts

import (
	"context"

	"github.com/murmurware/voice-relay/backend/internal/service/audio"
)

// Speaker synthesizes reply text via Murf and persists the clip into the
// audio store, yielding the URL path the orchestrator hands back to clients.
type Speaker struct {
	client *Client
	store  *audio.Store
}

// NewSpeaker pairs a Murf client with the generated-audio store.
func NewSpeaker(client *Client, store *audio.Store) *Speaker {
	return &Speaker{client: client, store: store}
}

// Synthesize implements relay.Synthesizer.
func (s *Speaker) Synthesize(ctx context.Context, text string) (string, error) {
	data, err := s.client.Generate(ctx, text)
	if err != nil {
		return "", err
	}
	return s.store.Save(data, "mp3")
}
