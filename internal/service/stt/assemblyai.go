// Package stt implements the AssemblyAI speech-to-text client: upload the
// clip, create a transcript job, poll until it completes.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/murmurware/voice-relay/backend/internal/provider"
)

const (
	providerName        = "assemblyai"
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 60
)

// Client calls the AssemblyAI REST API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
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

// WithPollInterval sets the delay between transcript status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxPolls bounds how many status polls are attempted before giving up.
func WithMaxPolls(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// NewClient creates an AssemblyAI client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio, starts a transcription job, and polls until
// the transcript is ready.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	transcriptID, err := c.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	return c.pollTranscript(ctx, transcriptID)
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", provider.Wrap(providerName, "upload", err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := c.do(req, "upload", &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", provider.Errorf(providerName, "upload", "response missing upload_url")
	}
	return out.UploadURL, nil
}

func (c *Client) createTranscript(ctx context.Context, uploadURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": uploadURL})
	if err != nil {
		return "", provider.Wrap(providerName, "transcript", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", provider.Wrap(providerName, "transcript", err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := c.do(req, "transcript", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", provider.Errorf(providerName, "transcript", "response missing transcript id")
	}
	return out.ID, nil
}

func (c *Client) pollTranscript(ctx context.Context, transcriptID string) (string, error) {
	pollURL := fmt.Sprintf("%s/v2/transcript/%s", c.baseURL, transcriptID)

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", provider.Wrap(providerName, "poll", ctx.Err())
			case <-time.After(c.pollInterval):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return "", provider.Wrap(providerName, "poll", err)
		}
		req.Header.Set("authorization", c.apiKey)

		var out transcriptResponse
		if err := c.do(req, "poll", &out); err != nil {
			return "", err
		}

		switch out.Status {
		case "completed":
			return out.Text, nil
		case "error":
			return "", provider.Errorf(providerName, "poll", "transcription error: %s", out.Error)
		}
		// queued / processing: keep polling
	}

	return "", provider.Errorf(providerName, "poll", "transcription timed out after %d polls", c.maxPolls)
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
