package interview

import (
	"strings"
	"time"
)

// Settings tunes the interview loop. Zero values are replaced by the
// defaults from DefaultSettings.
type Settings struct {
	InitTimeout  time.Duration // microphone acquisition
	WarmupDelay  time.Duration // pause between acquisition and the introduction
	TTSTimeout   time.Duration
	STTTimeout   time.Duration
	LLMTimeout   time.Duration
	MaxRecording time.Duration

	MaxQuestionsPerTopic  int
	MaxGenerationAttempts int
	MaxAnswerAttempts     int
	MaxIntentTurns        int

	// AutoStopOnSilence ends a recording after SilenceTimeout of silence
	// following speech. It needs a VAD.
	AutoStopOnSilence bool
	SilenceTimeout    time.Duration

	Language string
	Voice    string
	Speed    float32

	Messages Messages
}

// Messages are the user-facing texts of the interview.
type Messages struct {
	Warming    string
	Intro      string
	NoAudio    string
	Unclear    string
	Unexpected string
	// Clarify is the rephrasing template; %s is replaced by the question.
	Clarify string

	PermissionDenied string
	DeviceNotFound   string
	DeviceInUse      string
	InitTimeout      string

	NoTopics     string
	NoJobContext string
}

// DefaultMessages are in Brazilian Portuguese.
var DefaultMessages = Messages{
	Warming:          "Inicializando acesso ao microfone...",
	Intro:            "Olá! Eu sou o Tio Tor, seu coach de entrevistas. Vamos começar a praticar!",
	NoAudio:          "Nenhum áudio foi capturado. Por favor, verifique seu microfone e tente novamente.",
	Unclear:          "Não consegui entender claramente. Por favor, fale mais próximo ao microfone e tente novamente.",
	Unexpected:       "Ocorreu um erro inesperado. Por favor, tente novamente.",
	Clarify:          "Vou reformular: %s Em outras palavras, compartilhe sua visão sobre isso com suas próprias palavras.",
	PermissionDenied: "Permissão do microfone negada. Autorize o acesso ao microfone e inicie novamente.",
	DeviceNotFound:   "Nenhum microfone encontrado. Conecte um microfone e inicie novamente.",
	DeviceInUse:      "O microfone está sendo usado por outro aplicativo. Feche-o e inicie novamente.",
	InitTimeout:      "Tempo esgotado ao inicializar o microfone. Por favor, tente novamente.",
	NoTopics:         "Selecione pelo menos um tópico para a simulação.",
	NoJobContext:     "Informe a empresa e o cargo da vaga para começar.",
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		InitTimeout:           45 * time.Second,
		WarmupDelay:           2 * time.Second,
		TTSTimeout:            15 * time.Second,
		STTTimeout:            20 * time.Second,
		LLMTimeout:            12 * time.Second,
		MaxRecording:          5 * time.Minute,
		MaxQuestionsPerTopic:  2,
		MaxGenerationAttempts: 3,
		MaxAnswerAttempts:     3,
		MaxIntentTurns:        3,
		SilenceTimeout:        4500 * time.Millisecond,
		Language:              "pt",
		Voice:                 "ash",
		Speed:                 0.9,
		Messages:              DefaultMessages,
	}
}

// withDefaults fills zero fields. WarmupDelay is kept as is so tests can
// set it to zero; a negative value means zero.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.InitTimeout <= 0 {
		s.InitTimeout = d.InitTimeout
	}
	if s.WarmupDelay < 0 {
		s.WarmupDelay = 0
	}
	if s.TTSTimeout <= 0 {
		s.TTSTimeout = d.TTSTimeout
	}
	if s.STTTimeout <= 0 {
		s.STTTimeout = d.STTTimeout
	}
	if s.LLMTimeout <= 0 {
		s.LLMTimeout = d.LLMTimeout
	}
	if s.MaxRecording <= 0 {
		s.MaxRecording = d.MaxRecording
	}
	if s.MaxQuestionsPerTopic <= 0 {
		s.MaxQuestionsPerTopic = d.MaxQuestionsPerTopic
	}
	if s.MaxGenerationAttempts <= 0 {
		s.MaxGenerationAttempts = d.MaxGenerationAttempts
	}
	if s.MaxAnswerAttempts <= 0 {
		s.MaxAnswerAttempts = d.MaxAnswerAttempts
	}
	if s.MaxIntentTurns <= 0 {
		s.MaxIntentTurns = d.MaxIntentTurns
	}
	if s.SilenceTimeout <= 0 {
		s.SilenceTimeout = d.SilenceTimeout
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.Voice == "" {
		s.Voice = d.Voice
	}
	if s.Speed <= 0 {
		s.Speed = d.Speed
	}
	s.Messages = s.Messages.withDefaults()
	return s
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&m.Warming, d.Warming)
	fill(&m.Intro, d.Intro)
	fill(&m.NoAudio, d.NoAudio)
	fill(&m.Unclear, d.Unclear)
	fill(&m.Unexpected, d.Unexpected)
	fill(&m.Clarify, d.Clarify)
	fill(&m.PermissionDenied, d.PermissionDenied)
	fill(&m.DeviceNotFound, d.DeviceNotFound)
	fill(&m.DeviceInUse, d.DeviceInUse)
	fill(&m.InitTimeout, d.InitTimeout)
	fill(&m.NoTopics, d.NoTopics)
	fill(&m.NoJobContext, d.NoJobContext)
	return m
}
