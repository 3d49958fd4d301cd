// Package tts implements the Murf text-to-speech client and the synthesizer
// that persists generated clips for serving.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/murmurware/voice-relay/backend/internal/model/voice"
	"github.com/murmurware/voice-relay/backend/internal/provider"
)

const (
	providerName   = "murf"
	defaultBaseURL = "https://api.murf.ai"

	// MaxTextLen is Murf's per-request character limit; longer replies are
	// truncated before synthesis.
	MaxTextLen = 3000
)

// Client calls the Murf REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	voiceID    string

	mu            sync.Mutex
	resolvedVoice string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithVoiceID pins the synthesis voice instead of using the catalog's first
// entry.
func WithVoiceID(id string) Option {
	return func(c *Client) {
		c.voiceID = id
	}
}

// NewClient creates a Murf client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// Voices fetches the provider's voice catalog.
func (c *Client) Voices(ctx context.Context) ([]voice.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/speech/voices", nil)
	if err != nil {
		return nil, provider.Wrap(providerName, "voices", err)
	}
	c.setHeaders(req)

	var voices []voice.Voice
	if err := c.do(req, "voices", &voices); err != nil {
		return nil, err
	}
	if len(voices) == 0 {
		return nil, provider.Errorf(providerName, "voices", "provider returned an empty voice list")
	}
	return voices, nil
}

// Generate synthesizes the text and returns the MP3 bytes. Text beyond
// MaxTextLen is truncated, matching the provider's request limit.
func (c *Client) Generate(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, provider.Errorf(providerName, "generate", "text is empty")
	}
	if len(text) > MaxTextLen {
		log.Printf("[tts] reply length %d exceeds %d chars, truncating", len(text), MaxTextLen)
		// Back up to a rune boundary so truncation never produces invalid UTF-8.
		cut := MaxTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	voiceID, err := c.resolveVoice(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"voiceId": voiceID,
		"text":    text,
		"format":  "MP3",
	})
	if err != nil {
		return nil, provider.Wrap(providerName, "generate", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, provider.Wrap(providerName, "generate", err)
	}
	c.setHeaders(req)

	var out generateResponse
	if err := c.do(req, "generate", &out); err != nil {
		return nil, err
	}
	if out.AudioFile == "" {
		return nil, provider.Errorf(providerName, "generate", "response missing audioFile URL")
	}

	return c.download(ctx, out.AudioFile)
}

// resolveVoice returns the configured voice or, once, the catalog's first
// entry, cached for subsequent calls.
func (c *Client) resolveVoice(ctx context.Context) (string, error) {
	if c.voiceID != "" {
		return c.voiceID, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolvedVoice != "" {
		return c.resolvedVoice, nil
	}

	voices, err := c.Voices(ctx)
	if err != nil {
		return "", err
	}
	c.resolvedVoice = voices[0].ID
	return c.resolvedVoice, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, provider.Wrap(providerName, "download", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Wrap(providerName, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.Error{
			Name:   providerName,
			Op:     "download",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status fetching audio"),
		}
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", c.apiKey)
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Wrap(providerName, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return provider.Wrap(providerName, op, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &provider.Error{
			Name:   providerName,
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return provider.Wrap(providerName, op, err)
	}
	return nil
}
