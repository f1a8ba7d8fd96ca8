package fake

import (
	"context"
	"testing"

	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

func run(t *testing.T, v *FakeVAD, n int) []vad.VADEventType {
	t.Helper()
	frames := make(chan audio.Frame, n)
	for i := 0; i < n; i++ {
		frames <- audio.Frame{Data: make([]byte, 320), SampleRate: 16000, NumChannels: 1}
	}
	close(frames)

	events, err := v.Detect(context.Background(), frames)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	var got []vad.VADEventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	return got
}

func TestFakeVADIsDeterministic(t *testing.T) {
	a := run(t, NewFakeVAD(0.5), 200)
	b := run(t, NewFakeVAD(0.5), 200)

	if len(a) != len(b) {
		t.Fatalf("same seed produced %d and %d events", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("event %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFakeVADAlternates(t *testing.T) {
	got := run(t, NewFakeVAD(0.5), 500)
	if len(got) == 0 {
		t.Fatal("expected some events")
	}
	for i, ev := range got {
		want := vad.VADEventSpeechStart
		if i%2 == 1 {
			want = vad.VADEventSpeechEnd
		}
		if ev != want {
			t.Fatalf("event %d = %v, want %v", i, ev, want)
		}
	}
}
