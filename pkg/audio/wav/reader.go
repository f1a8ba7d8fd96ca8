// Package wav encodes captured answers for transcription and decodes WAV
// files used as scripted microphone input.
package wav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// Header represents a WAV file header
type Header struct {
	ChunkSize     uint32
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Reader reads WAV streams and converts them to 10 ms frames.
type Reader struct {
	r      io.Reader
	closer io.Closer
	header Header
}

// NewReader opens filename and parses its header.
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	reader, err := NewStreamReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// NewStreamReader parses the header from r, leaving r at the start of the
// audio data.
func NewStreamReader(r io.Reader) (*Reader, error) {
	reader := &Reader{r: r}
	if err := reader.readHeader(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	return reader, nil
}

// Header returns the WAV file header information
func (r *Reader) Header() Header {
	return r.header
}

// ReadAll returns the remaining PCM payload.
func (r *Reader) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.r, int64(r.header.DataSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	return data, nil
}

// ReadFrames reads the remaining audio and returns it as 10ms frames. A short
// trailing frame is zero padded.
func (r *Reader) ReadFrames() ([]audio.Frame, error) {
	pcm, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	sampleRate := int(r.header.SampleRate)
	numChannels := int(r.header.NumChannels)
	size := audio.FrameSize(sampleRate, numChannels)

	var frames []audio.Frame
	for i := 0; len(pcm) > 0; i++ {
		data := make([]byte, size)
		n := copy(data, pcm)
		pcm = pcm[n:]
		frames = append(frames, audio.Frame{
			Data:              data,
			SampleRate:        sampleRate,
			SamplesPerChannel: sampleRate / 100,
			NumChannels:       numChannels,
			Timestamp:         time.Duration(i) * 10 * time.Millisecond,
		})
	}
	return frames, nil
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// readHeader reads and validates the RIFF header, the fmt chunk and the data
// chunk header. Unknown chunks in between are skipped.
func (r *Reader) readHeader() error {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r.r, riffHeader[:]); err != nil {
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" {
		return fmt.Errorf("not a valid RIFF file")
	}
	if string(riffHeader[8:12]) != "WAVE" {
		return fmt.Errorf("not a valid WAVE file")
	}
	r.header.ChunkSize = binary.LittleEndian.Uint32(riffHeader[4:8])

	haveFmt := false
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r.r, chunkHeader[:]); err != nil {
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if err := r.readFmtChunk(chunkSize); err != nil {
				return err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return fmt.Errorf("data chunk before fmt chunk")
			}
			r.header.DataSize = chunkSize
			return r.validate()
		default:
			if _, err := io.CopyN(io.Discard, r.r, int64(chunkSize)); err != nil {
				return fmt.Errorf("failed to skip chunk %q: %w", chunkID, err)
			}
		}
	}
}

func (r *Reader) readFmtChunk(chunkSize uint32) error {
	if chunkSize < 16 {
		return fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
	}

	var fmtData [16]byte
	if _, err := io.ReadFull(r.r, fmtData[:]); err != nil {
		return fmt.Errorf("failed to read fmt data: %w", err)
	}

	audioFormat := binary.LittleEndian.Uint16(fmtData[0:2])
	if audioFormat != 1 {
		return fmt.Errorf("only PCM format is supported, got format %d", audioFormat)
	}
	r.header.NumChannels = binary.LittleEndian.Uint16(fmtData[2:4])
	r.header.SampleRate = binary.LittleEndian.Uint32(fmtData[4:8])
	r.header.BitsPerSample = binary.LittleEndian.Uint16(fmtData[14:16])

	if chunkSize > 16 {
		if _, err := io.CopyN(io.Discard, r.r, int64(chunkSize-16)); err != nil {
			return fmt.Errorf("failed to skip fmt data: %w", err)
		}
	}
	return nil
}

func (r *Reader) validate() error {
	if r.header.BitsPerSample != 16 {
		return fmt.Errorf("only 16-bit samples are supported, got %d-bit", r.header.BitsPerSample)
	}
	if r.header.NumChannels != 1 && r.header.NumChannels != 2 {
		return fmt.Errorf("only mono and stereo are supported, got %d channels", r.header.NumChannels)
	}
	if r.header.SampleRate == 0 || r.header.SampleRate%100 != 0 {
		return fmt.Errorf("sample rate must be a multiple of 100Hz, got %dHz", r.header.SampleRate)
	}
	return nil
}
