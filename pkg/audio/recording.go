package audio

import "time"

// Recording is the PCM captured between the start and stop of one answer.
type Recording struct {
	PCM         []byte // 16-bit PCM, little-endian, interleaved
	SampleRate  int
	NumChannels int
	StartedAt   time.Time
}

// NewRecording returns an empty recording in the given format.
func NewRecording(sampleRate, numChannels int) *Recording {
	return &Recording{
		SampleRate:  sampleRate,
		NumChannels: numChannels,
		StartedAt:   time.Now(),
	}
}

// Append copies the frame payload onto the recording.
func (r *Recording) Append(f Frame) {
	r.PCM = append(r.PCM, f.Data...)
}

// Len returns the number of captured bytes.
func (r *Recording) Len() int {
	if r == nil {
		return 0
	}
	return len(r.PCM)
}

// Empty reports whether nothing was captured.
func (r *Recording) Empty() bool {
	return r.Len() == 0
}

// Duration returns the length of the captured audio.
func (r *Recording) Duration() time.Duration {
	if r == nil || r.SampleRate <= 0 || r.NumChannels <= 0 {
		return 0
	}
	samples := len(r.PCM) / (2 * r.NumChannels)
	return time.Duration(samples) * time.Second / time.Duration(r.SampleRate)
}
