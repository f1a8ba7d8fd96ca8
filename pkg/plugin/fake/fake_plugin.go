// Package fake registers the fake providers under the name "fake" so the CLI
// can run a whole interview offline. It also registers the energy detector
// as the "energy" VAD.
package fake

import (
	llmfake "github.com/chriscow/interview-agents-go/pkg/ai/llm/fake"
	sttfake "github.com/chriscow/interview-agents-go/pkg/ai/stt/fake"
	ttsfake "github.com/chriscow/interview-agents-go/pkg/ai/tts/fake"
	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
	vadfake "github.com/chriscow/interview-agents-go/pkg/ai/vad/fake"
	"github.com/chriscow/interview-agents-go/pkg/plugin"
)

func newFakeSTT(cfg map[string]any) (any, error) {
	return sttfake.NewFakeSTT(stringList(cfg["transcripts"])...), nil
}

func newFakeTTS(map[string]any) (any, error) {
	return ttsfake.NewFakeTTS(), nil
}

func newFakeLLM(cfg map[string]any) (any, error) {
	return llmfake.NewFakeLLM(stringList(cfg["responses"])...), nil
}

func newFakeVAD(cfg map[string]any) (any, error) {
	return vadfake.NewFakeVAD(floatOr(cfg["probability"], 0.5)), nil
}

func newEnergyVAD(cfg map[string]any) (any, error) {
	return vad.NewEnergyVAD(vad.EnergyConfig{
		Threshold:     floatOr(cfg["threshold"], 0),
		SpeechFrames:  intOr(cfg["speech_frames"]),
		SilenceFrames: intOr(cfg["silence_frames"]),
	}), nil
}

// stringList accepts both []string and the []any produced by YAML decoding.
func stringList(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

func floatOr(v any, def float32) float32 {
	switch v := v.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	}
	return def
}

func intOr(v any) int {
	switch v := v.(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "fake",
		Factory:     newFakeSTT,
		Description: "Scripted transcripts for offline runs",
		Version:     "2.0.0",
		Config: map[string]any{
			"transcripts": []string{sttfake.DefaultTranscript},
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "fake",
		Factory:     newFakeTTS,
		Description: "Quiet tone sized to the text",
		Version:     "2.0.0",
		Config:      map[string]any{},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "fake",
		Factory:     newFakeLLM,
		Description: "Canned chat replies, cycled in order",
		Version:     "2.0.0",
		Config: map[string]any{
			"responses": []string{"List of canned replies"},
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "fake",
		Factory:     newFakeVAD,
		Description: "Random speech decisions with a fixed probability",
		Version:     "2.0.0",
		Config: map[string]any{
			"probability": 0.5,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "energy",
		Factory:     newEnergyVAD,
		Description: "RMS energy threshold detector",
		Version:     "2.0.0",
		Config: map[string]any{
			"threshold":      vad.DefaultEnergyThreshold,
			"speech_frames":  vad.DefaultSpeechFrames,
			"silence_frames": vad.DefaultSilenceFrames,
		},
	})
}
