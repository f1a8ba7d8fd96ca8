// Package config handles reading and writing the iv-go YAML configuration
// and applying environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chriscow/interview-agents-go/pkg/interview"
)

// Environment variables that override the file.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvSTT      = "IV_STT"
	EnvTTS      = "IV_TTS"
	EnvLLM      = "IV_LLM"
	EnvLanguage = "IV_LANGUAGE"
)

// Config is the top-level structure of iv-go.yaml.
type Config struct {
	Version   int             `yaml:"version"`
	Providers ProvidersConfig `yaml:"providers"`
	Interview InterviewConfig `yaml:"interview"`
	Audio     AudioConfig     `yaml:"audio"`
	Bridge    BridgeConfig    `yaml:"bridge"`

	// APIKey comes from the environment only.
	APIKey string `yaml:"-"`
}

// ProvidersConfig names the registered plugin used for each boundary.
type ProvidersConfig struct {
	STT ProviderConfig `yaml:"stt"`
	TTS ProviderConfig `yaml:"tts"`
	LLM ProviderConfig `yaml:"llm"`
	VAD ProviderConfig `yaml:"vad"`
}

// ProviderConfig selects a plugin and passes it options.
type ProviderConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// InterviewConfig mirrors interview.Settings. Durations are written as
// Go duration strings, e.g. "45s".
type InterviewConfig struct {
	Topics     []string `yaml:"topics"`
	JobContext string   `yaml:"job_context"`

	InitTimeout  time.Duration `yaml:"init_timeout"`
	WarmupDelay  time.Duration `yaml:"warmup_delay"`
	TTSTimeout   time.Duration `yaml:"tts_timeout"`
	STTTimeout   time.Duration `yaml:"stt_timeout"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	MaxRecording time.Duration `yaml:"max_recording"`

	MaxQuestionsPerTopic  int `yaml:"max_questions_per_topic"`
	MaxGenerationAttempts int `yaml:"max_generation_attempts"`
	MaxAnswerAttempts     int `yaml:"max_answer_attempts"`

	AutoStopOnSilence bool          `yaml:"auto_stop_on_silence"`
	SilenceTimeout    time.Duration `yaml:"silence_timeout"`

	Language string  `yaml:"language"`
	Voice    string  `yaml:"voice"`
	Speed    float32 `yaml:"speed"`
}

// AudioConfig selects the local audio devices.
type AudioConfig struct {
	Backend       string  `yaml:"backend"`        // "native" | "headless"
	InputFile     string  `yaml:"input_file"`     // WAV replayed as the microphone when headless
	PlaybackScale float64 `yaml:"playback_scale"` // headless playback time multiplier
	SaveAnswers   string  `yaml:"save_answers"`   // directory for recorded answers, empty to skip
}

// BridgeConfig configures the websocket server.
type BridgeConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// Audio backends.
const (
	BackendNative   = "native"
	BackendHeadless = "headless"
)

// DefaultConfig returns a Config populated with the production defaults.
func DefaultConfig() *Config {
	s := interview.DefaultSettings()
	return &Config{
		Version: 1,
		Providers: ProvidersConfig{
			STT: ProviderConfig{Name: "openai"},
			TTS: ProviderConfig{Name: "openai"},
			LLM: ProviderConfig{Name: "openai"},
			VAD: ProviderConfig{Name: "energy"},
		},
		Interview: InterviewConfig{
			Topics:                []string{"Liderança", "Resolução de conflitos"},
			InitTimeout:           s.InitTimeout,
			WarmupDelay:           s.WarmupDelay,
			TTSTimeout:            s.TTSTimeout,
			STTTimeout:            s.STTTimeout,
			LLMTimeout:            s.LLMTimeout,
			MaxRecording:          s.MaxRecording,
			MaxQuestionsPerTopic:  s.MaxQuestionsPerTopic,
			MaxGenerationAttempts: s.MaxGenerationAttempts,
			MaxAnswerAttempts:     s.MaxAnswerAttempts,
			AutoStopOnSilence:     s.AutoStopOnSilence,
			SilenceTimeout:        s.SilenceTimeout,
			Language:              s.Language,
			Voice:                 s.Voice,
			Speed:                 s.Speed,
		},
		Audio: AudioConfig{
			Backend:       BackendNative,
			PlaybackScale: 1,
		},
		Bridge: BridgeConfig{
			Addr: ":8080",
			Path: "/ws",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
// With no arguments it loads ".env".
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides provider names, the language and the API key from the
// environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvSTT); v != "" {
		c.Providers.STT.Name = v
	}
	if v := os.Getenv(EnvTTS); v != "" {
		c.Providers.TTS.Name = v
	}
	if v := os.Getenv(EnvLLM); v != "" {
		c.Providers.LLM.Name = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.Interview.Language = v
	}
}

// Validate checks the values a session cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if c.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	if c.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if s := c.Interview.Speed; s != 0 && (s < 0.25 || s > 4) {
		errs = append(errs, fmt.Errorf("interview.speed must be between 0.25 and 4, got %v", s))
	}
	switch c.Audio.Backend {
	case "", BackendNative, BackendHeadless:
	default:
		errs = append(errs, fmt.Errorf("audio.backend must be %q or %q, got %q", BackendNative, BackendHeadless, c.Audio.Backend))
	}
	if c.Audio.PlaybackScale < 0 {
		errs = append(errs, errors.New("audio.playback_scale cannot be negative"))
	}
	return errors.Join(errs...)
}

// ProviderOptions returns the plugin options for p. OpenAI providers also
// get the language, voice and speed of the interview and the API key.
func (c *Config) ProviderOptions(p ProviderConfig) map[string]any {
	opts := make(map[string]any, len(p.Options)+4)
	if p.Name == "openai" {
		if c.APIKey != "" {
			opts["api_key"] = c.APIKey
		}
		if c.Interview.Language != "" {
			opts["language"] = c.Interview.Language
		}
		if c.Interview.Voice != "" {
			opts["voice"] = c.Interview.Voice
		}
		if c.Interview.Speed > 0 {
			opts["speed"] = float64(c.Interview.Speed)
		}
	}
	for k, v := range p.Options {
		opts[k] = v
	}
	return opts
}

// Settings converts the interview section. Zero values fall back to the
// defaults inside the controller.
func (c *Config) Settings() interview.Settings {
	s := interview.DefaultSettings()
	ic := c.Interview
	s.InitTimeout = ic.InitTimeout
	s.WarmupDelay = ic.WarmupDelay
	s.TTSTimeout = ic.TTSTimeout
	s.STTTimeout = ic.STTTimeout
	s.LLMTimeout = ic.LLMTimeout
	s.MaxRecording = ic.MaxRecording
	s.MaxQuestionsPerTopic = ic.MaxQuestionsPerTopic
	s.MaxGenerationAttempts = ic.MaxGenerationAttempts
	s.MaxAnswerAttempts = ic.MaxAnswerAttempts
	s.AutoStopOnSilence = ic.AutoStopOnSilence
	s.SilenceTimeout = ic.SilenceTimeout
	s.Language = ic.Language
	s.Voice = ic.Voice
	s.Speed = ic.Speed
	return s
}
