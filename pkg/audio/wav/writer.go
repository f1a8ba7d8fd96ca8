package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/chriscow/interview-agents-go/pkg/audio"
)

const headerSize = 44

// Encode writes a canonical 16-bit PCM WAV stream to w.
func Encode(w io.Writer, pcm []byte, sampleRate, numChannels int) error {
	if sampleRate <= 0 || numChannels <= 0 {
		return fmt.Errorf("invalid WAV format: %dHz %d-channel", sampleRate, numChannels)
	}

	const bitsPerSample = 16
	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	var hdr [headerSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], dataSize+36)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// EncodeRecording returns the recording as an in-memory WAV file.
func EncodeRecording(rec *audio.Recording) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil recording")
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(rec.PCM))
	if err := Encode(&buf, rec.PCM, rec.SampleRate, rec.NumChannels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile saves the recording to filename.
func WriteFile(filename string, rec *audio.Recording) error {
	data, err := EncodeRecording(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	return nil
}
