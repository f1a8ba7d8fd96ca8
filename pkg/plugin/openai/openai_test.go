package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// server starts a fake API and returns a config pointing at it.
func server(t *testing.T, h http.HandlerFunc) Config {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"}
}

func TestConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewWhisperSTT(configFrom(nil))
	if err == nil {
		t.Error("Expected error for missing API key")
	}
	_, err = NewChatLLM(Config{})
	if err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestConfigFrom(t *testing.T) {
	is := is.New(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	c := configFrom(map[string]any{"model": "gpt-4o", "voice": "nova", "speed": 1})
	is.Equal(c.APIKey, "env-key")
	is.Equal(c.Model, "gpt-4o")
	is.Equal(c.Voice, "nova")
	is.Equal(c.Speed, 1.0)

	c = configFrom(map[string]any{"api_key": "explicit"})
	is.Equal(c.APIKey, "explicit")
}

func TestWhisperTranscribe(t *testing.T) {
	is := is.New(t)

	cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil || header.Filename != "answer.wav" {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if r.FormValue("language") != "pt" || r.FormValue("response_format") != "verbose_json" {
			http.Error(w, "unexpected form", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"task":"transcribe","language":"portuguese","duration":1,"text":" Eu liderei o time. ",
			"segments":[{"no_speech_prob":0.1},{"no_speech_prob":0.3}]}`)
	})

	whisper, err := NewWhisperSTT(cfg)
	is.NoErr(err)
	is.Equal(whisper.model, DefaultSTTModel)
	is.Equal(whisper.language, "pt")

	rec := audio.NewRecording(16000, 1)
	rec.PCM = make([]byte, 3200)

	got, err := whisper.Transcribe(context.Background(), rec, stt.TranscribeOptions{})
	is.NoErr(err)
	is.Equal(got.Text, "Eu liderei o time.")
	is.Equal(got.Language, "portuguese")
	is.True(got.Confidence != nil)
	is.True(math.Abs(*got.Confidence-0.8) < 1e-9)
}

func TestWhisperEmptyRecording(t *testing.T) {
	is := is.New(t)

	called := false
	cfg := server(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	whisper, err := NewWhisperSTT(cfg)
	is.NoErr(err)

	got, err := whisper.Transcribe(context.Background(), audio.NewRecording(16000, 1), stt.TranscribeOptions{})
	is.NoErr(err)
	is.Equal(got.Text, "")
	is.True(!called)
}

func TestChatJSONMode(t *testing.T) {
	is := is.New(t)

	var body struct {
		Model          string `json:"model"`
		MaxTokens      int    `json:"max_tokens"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\":85}"},
			"finish_reason":"stop"}],"usage":{"total_tokens":42}}`)
	})

	chat, err := NewChatLLM(cfg)
	is.NoErr(err)

	resp, err := chat.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Avalie a resposta."},
			{Role: llm.RoleUser, Content: "Eu liderei o time."},
		},
		MaxTokens:      200,
		ResponseFormat: llm.ResponseFormatJSON,
	})
	is.NoErr(err)
	is.Equal(resp.Message.Content, `{"score":85}`)
	is.Equal(resp.TokensUsed, 42)
	is.Equal(resp.FinishReason, "stop")

	is.Equal(body.Model, DefaultChatModel)
	is.Equal(body.MaxTokens, 200)
	is.True(body.ResponseFormat != nil)
	is.Equal(body.ResponseFormat.Type, "json_object")
	is.Equal(len(body.Messages), 2)
	is.Equal(body.Messages[0].Role, "system")
}

func TestChatForcedFunctionCall(t *testing.T) {
	is := is.New(t)

	var body struct {
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name       string         `json:"name"`
				Parameters map[string]any `json:"parameters"`
			} `json:"function"`
		} `json:"tools"`
		ToolChoice struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tool_choice"`
	}
	cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"registrar_avaliacao","arguments":"{\"score\":70}"}}]},
			"finish_reason":"tool_calls"}],"usage":{"total_tokens":30}}`)
	})

	chat, err := NewChatLLM(cfg)
	is.NoErr(err)

	resp, err := chat.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Eu liderei o time."}},
		Functions: []llm.FunctionDefinition{{
			Name:       "registrar_avaliacao",
			Parameters: map[string]any{"type": "object"},
		}},
		ForceFunction: "registrar_avaliacao",
	})
	is.NoErr(err)
	is.True(resp.FunctionCall != nil)
	is.Equal(resp.FunctionCall.Name, "registrar_avaliacao")
	is.Equal(resp.FunctionCall.Arguments, `{"score":70}`)
	is.Equal(resp.FinishReason, "tool_calls")

	is.Equal(len(body.Tools), 1)
	is.Equal(body.Tools[0].Type, "function")
	is.Equal(body.Tools[0].Function.Name, "registrar_avaliacao")
	is.Equal(body.Tools[0].Function.Parameters["type"], "object")
	is.Equal(body.ToolChoice.Type, "function")
	is.Equal(body.ToolChoice.Function.Name, "registrar_avaliacao")
}

func TestChatEmptyChoices(t *testing.T) {
	cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[]}`)
	})
	chat, err := NewChatLLM(cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = chat.Chat(context.Background(), llm.ChatRequest{})
	if !errors.Is(err, ai.ErrEmptyResponse) || !ai.IsRecoverable(err) {
		t.Errorf("Expected recoverable empty response, got %v", err)
	}
}

func TestSpeechSynthesize(t *testing.T) {
	is := is.New(t)

	var body map[string]any
	cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		io.WriteString(w, "ID3fake-mp3")
	})

	speech, err := NewSpeechTTS(cfg)
	is.NoErr(err)

	got, err := speech.Synthesize(context.Background(), tts.SynthesizeRequest{Text: "  Olá!  "})
	is.NoErr(err)
	is.Equal(string(got.Data), "ID3fake-mp3")
	is.Equal(got.Format, tts.FormatMP3)
	is.Equal(got.Text, "Olá!")

	is.Equal(body["model"], "tts-1")
	is.Equal(body["voice"], "ash")
	is.Equal(body["input"], "Olá!")
	is.Equal(body["response_format"], "mp3")
	is.Equal(body["speed"], 0.9)
}

func TestSpeechRejectsEmptyText(t *testing.T) {
	speech, err := NewSpeechTTS(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = speech.Synthesize(context.Background(), tts.SynthesizeRequest{Text: "   "})
	if !errors.Is(err, ai.ErrSynthesisFailed) || !ai.IsFatal(err) {
		t.Errorf("Expected fatal synthesis error, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status      int
		recoverable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			cfg := server(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"test_error"}}`)
			})
			speech, err := NewSpeechTTS(cfg)
			if err != nil {
				t.Fatal(err)
			}

			_, err = speech.Synthesize(context.Background(), tts.SynthesizeRequest{Text: "oi"})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ai.ErrSynthesisFailed) {
				t.Errorf("Expected synthesis failure kind, got %v", err)
			}
			if ai.IsRecoverable(err) != tt.recoverable {
				t.Errorf("status %d: recoverable = %v, want %v", tt.status, ai.IsRecoverable(err), tt.recoverable)
			}
		})
	}
}

func TestContextErrorsAreNotClassified(t *testing.T) {
	err := classify(context.Canceled, ai.ErrTranscriptionFailed, "cancelled")
	if ai.IsRecoverable(err) || ai.IsFatal(err) {
		t.Errorf("Expected unclassified error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}
