// Package openai provides providers backed by the OpenAI API: Whisper for
// speech-to-text, the speech endpoint for text-to-speech and chat
// completions for the coach.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/plugin"
)

// Defaults used when the configuration leaves a field empty.
const (
	DefaultChatModel   = openai.GPT4oMini
	DefaultSTTModel    = openai.Whisper1
	DefaultTTSModel    = string(openai.TTSModel1)
	DefaultVoice       = "ash"
	DefaultSpeed       = 0.9
	DefaultLanguage    = "pt"
	DefaultTemperature = 0.3
)

// Config holds configuration shared by the OpenAI providers.
type Config struct {
	APIKey   string  `json:"api_key"`
	BaseURL  string  `json:"base_url"` // optional, e.g. a proxy or a test server
	Model    string  `json:"model"`
	Language string  `json:"language"` // STT only
	Voice    string  `json:"voice"`    // TTS only
	Speed    float64 `json:"speed"`    // TTS only

	// HTTPClient overrides the client used for API calls.
	HTTPClient *http.Client `json:"-"`
}

// configFrom reads a plugin configuration map. The API key falls back to
// OPENAI_API_KEY.
func configFrom(cfg map[string]any) Config {
	var c Config
	c.APIKey, _ = cfg["api_key"].(string)
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	c.BaseURL, _ = cfg["base_url"].(string)
	c.Model, _ = cfg["model"].(string)
	c.Language, _ = cfg["language"].(string)
	c.Voice, _ = cfg["voice"].(string)
	switch v := cfg["speed"].(type) {
	case float64:
		c.Speed = v
	case float32:
		c.Speed = float64(v)
	case int:
		c.Speed = float64(v)
	}
	return c
}

func newClient(cfg Config) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable or provide api_key in config)")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// classify wraps an API failure with kind and marks it recoverable when a
// retry may help: rate limiting, server errors and transport failures.
// Context errors are returned unclassified so retry loops stop.
func classify(err error, kind error, msg string) error {
	wrapped := fmt.Errorf("%w: %w", kind, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, wrapped)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return ai.NewRecoverableError(wrapped, msg)
	}

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return ai.NewRecoverableError(wrapped, msg)
	}
	return ai.NewFatalError(wrapped, msg)
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "openai",
		Factory:     func(cfg map[string]any) (any, error) { return NewWhisperSTT(configFrom(cfg)) },
		Description: "OpenAI Whisper speech-to-text",
		Version:     "2.0.0",
		Config: map[string]any{
			"api_key":  "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":    DefaultSTTModel,
			"language": DefaultLanguage,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "openai",
		Factory:     func(cfg map[string]any) (any, error) { return NewChatLLM(configFrom(cfg)) },
		Description: "OpenAI chat completions",
		Version:     "2.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   DefaultChatModel,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "openai",
		Factory:     func(cfg map[string]any) (any, error) { return NewSpeechTTS(configFrom(cfg)) },
		Description: "OpenAI text-to-speech (mp3)",
		Version:     "2.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   DefaultTTSModel,
			"voice":   DefaultVoice,
			"speed":   DefaultSpeed,
		},
	})
}
