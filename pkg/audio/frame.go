// Package audio holds the PCM primitives shared by the microphone, the
// recorder and the speech providers.
package audio

import (
	"fmt"
	"time"
)

// Default capture format used by the interview microphone path.
const (
	DefaultSampleRate  = 16000
	DefaultNumChannels = 1
)

// Frame represents exactly 10 ms of PCM audio.
// Len(Data) == SamplesPerChannel * NumChannels * 2.
//
// A zero Timestamp means "live"; otherwise it is the offset from the start
// of the stream.
type Frame struct {
	Data              []byte        // 16-bit PCM, little-endian
	SampleRate        int           // 48 000 or 16 000
	SamplesPerChannel int           // SampleRate / 100
	NumChannels       int           // 1 or 2
	Timestamp         time.Duration // optional
}

// FrameSize returns the byte length of a 10 ms frame in the given format.
func FrameSize(sampleRate, numChannels int) int {
	return sampleRate / 100 * numChannels * 2
}

// NewFrame creates a new Frame with the specified parameters.
// Returns an error if the data length doesn't match the expected size for 10ms of audio.
func NewFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*Frame, error) {
	if sampleRate <= 0 || numChannels <= 0 {
		return nil, fmt.Errorf("invalid audio format: %dHz %d-channel", sampleRate, numChannels)
	}
	expectedLen := FrameSize(sampleRate, numChannels)
	if len(data) != expectedLen {
		return nil, fmt.Errorf("frame data length mismatch: got %d bytes, expected %d bytes for %dHz %d-channel 10ms audio",
			len(data), expectedLen, sampleRate, numChannels)
	}

	return &Frame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: sampleRate / 100,
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// Clone creates a deep copy of the Frame.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)

	return &Frame{
		Data:              data,
		SampleRate:        f.SampleRate,
		SamplesPerChannel: f.SamplesPerChannel,
		NumChannels:       f.NumChannels,
		Timestamp:         f.Timestamp,
	}
}

// Duration returns the duration represented by this frame (always 10ms).
func (f *Frame) Duration() time.Duration {
	return 10 * time.Millisecond
}

// Chunker slices an arbitrary PCM byte stream into 10 ms frames. Bytes that
// do not fill a whole frame are held until the next Write.
type Chunker struct {
	sampleRate  int
	numChannels int
	pending     []byte
	emitted     int
}

// NewChunker returns a Chunker for the given format.
func NewChunker(sampleRate, numChannels int) *Chunker {
	return &Chunker{sampleRate: sampleRate, numChannels: numChannels}
}

// Write appends pcm and returns every complete frame now available.
func (c *Chunker) Write(pcm []byte) []Frame {
	c.pending = append(c.pending, pcm...)
	size := FrameSize(c.sampleRate, c.numChannels)

	var frames []Frame
	for len(c.pending) >= size {
		data := make([]byte, size)
		copy(data, c.pending[:size])
		c.pending = c.pending[size:]
		frames = append(frames, Frame{
			Data:              data,
			SampleRate:        c.sampleRate,
			SamplesPerChannel: c.sampleRate / 100,
			NumChannels:       c.numChannels,
			Timestamp:         time.Duration(c.emitted) * 10 * time.Millisecond,
		})
		c.emitted++
	}
	return frames
}
