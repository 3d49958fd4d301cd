package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server ServerConfig
	STT    STTConfig
	TTS    TTSConfig
	AI     AIConfig
	Relay  RelayConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	stt, err := loadSTTConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		STT:    stt,
		TTS:    loadTTSConfig(),
		AI:     ai,
		Relay:  relay,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// STTConfig describes the AssemblyAI transcription provider.
type STTConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

// Enabled reports whether the required credential is present.
func (c STTConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadSTTConfig() (STTConfig, error) {
	intervalMS, err := parseOptionalIntEnv("ASSEMBLYAI_POLL_INTERVAL_MS")
	if err != nil {
		return STTConfig{}, err
	}
	interval := 3 * time.Second
	if intervalMS != nil {
		if *intervalMS < 1 {
			return STTConfig{}, fmt.Errorf("ASSEMBLYAI_POLL_INTERVAL_MS must be positive, got %d", *intervalMS)
		}
		interval = time.Duration(*intervalMS) * time.Millisecond
	}

	maxPolls := 60
	if override, err := parseOptionalIntEnv("ASSEMBLYAI_POLL_MAX_TRIES"); err != nil {
		return STTConfig{}, err
	} else if override != nil {
		if *override < 1 {
			maxPolls = 1
		} else {
			maxPolls = *override
		}
	}

	return STTConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")),
		BaseURL:      getEnvOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		PollInterval: interval,
		MaxPolls:     maxPolls,
	}, nil
}

// TTSConfig describes the Murf synthesis provider.
type TTSConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
}

// Enabled reports whether the required credential is present.
func (c TTSConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadTTSConfig() TTSConfig {
	return TTSConfig{
		APIKey:  strings.TrimSpace(os.Getenv("MURF_API_KEY")),
		BaseURL: getEnvOrDefault("MURF_BASE_URL", "https://api.murf.ai"),
		VoiceID: strings.TrimSpace(os.Getenv("MURF_VOICE_ID")),
	}
}

// AIConfig describes the chat model behind the reply pipeline.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("chat model credentials missing: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

// RelayConfig describes orchestration-level settings.
type RelayConfig struct {
	StaticDir       string
	ProviderTimeout time.Duration
	SessionMaxCount int
}

func loadRelayConfig() (RelayConfig, error) {
	timeout, err := parseOptionalIntEnv("PROVIDER_TIMEOUT")
	if err != nil {
		return RelayConfig{}, err
	}
	timeoutSeconds := 60
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	maxSessions := 256
	if override, err := parseOptionalIntEnv("SESSION_MAX_COUNT"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		if *override < 1 {
			maxSessions = 1
		} else {
			maxSessions = *override
		}
	}

	return RelayConfig{
		StaticDir:       getEnvOrDefault("STATIC_DIR", "static"),
		ProviderTimeout: time.Duration(timeoutSeconds) * time.Second,
		SessionMaxCount: maxSessions,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
