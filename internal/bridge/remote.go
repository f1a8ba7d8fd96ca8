package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/device"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

// sender queues a command for the client.
type sender func(ctx context.Context, cmd *Command) error

// RemoteMicrophone is the client's microphone. Open asks the client to start
// streaming and waits for its answer.
type RemoteMicrophone struct {
	send   sender
	logger *slog.Logger

	mu      sync.Mutex
	reply   chan error
	frames  chan audio.Frame
	chunker *audio.Chunker
	dropped int
}

func newRemoteMicrophone(send sender, logger *slog.Logger) *RemoteMicrophone {
	return &RemoteMicrophone{send: send, logger: logger}
}

// Open sends open_mic and blocks until mic_ready, mic_error or ctx.
func (m *RemoteMicrophone) Open(ctx context.Context) (<-chan audio.Frame, error) {
	reply := make(chan error, 1)
	m.mu.Lock()
	if m.frames != nil || m.reply != nil {
		m.mu.Unlock()
		return nil, voice.NewDeviceError(voice.ErrDeviceInUse, "remote", nil)
	}
	m.reply = reply
	m.mu.Unlock()

	cancelReply := func() {
		m.mu.Lock()
		if m.reply == reply {
			m.reply = nil
		}
		m.mu.Unlock()
	}

	if err := m.send(ctx, &Command{Type: CommandOpenMic}); err != nil {
		cancelReply()
		return nil, err
	}

	select {
	case err := <-reply:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		cancelReply()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = make(chan audio.Frame, 64)
	m.chunker = audio.NewChunker(audio.DefaultSampleRate, audio.DefaultNumChannels)
	m.dropped = 0
	return m.frames, nil
}

// resolve answers a pending Open.
func (m *RemoteMicrophone) resolve(err error) {
	m.mu.Lock()
	reply := m.reply
	m.reply = nil
	m.mu.Unlock()
	if reply != nil {
		reply <- err
	}
}

// write feeds client PCM. Frames are dropped when the consumer falls behind.
func (m *RemoteMicrophone) write(pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frames == nil {
		return
	}
	for _, f := range m.chunker.Write(pcm) {
		select {
		case m.frames <- f:
		default:
			m.dropped++
		}
	}
}

// Close tells the client to stop streaming and closes the frame channel.
func (m *RemoteMicrophone) Close() error {
	m.mu.Lock()
	frames, dropped := m.frames, m.dropped
	m.frames, m.chunker = nil, nil
	m.mu.Unlock()
	if frames == nil {
		return nil
	}
	close(frames)
	if dropped > 0 {
		m.logger.Warn("dropped microphone frames", slog.Int("frames", dropped))
	}
	return m.send(context.Background(), &Command{Type: CommandCloseMic})
}

// RemotePlayer plays audio on the client and waits for playback_done.
type RemotePlayer struct {
	send sender
	// pcm makes the player decode mp3 before sending, for clients that
	// cannot decode it themselves.
	pcm bool

	mu      sync.Mutex
	pending map[string]chan struct{}
}

func newRemotePlayer(send sender, pcm bool) *RemotePlayer {
	return &RemotePlayer{send: send, pcm: pcm, pending: make(map[string]chan struct{})}
}

// Play sends the audio and blocks until the client reports it finished,
// Stop is called or ctx is done.
func (p *RemotePlayer) Play(ctx context.Context, a tts.Audio) error {
	data := PlayData{
		ID:          uuid.NewString(),
		Format:      string(a.Format),
		Audio:       a.Data,
		SampleRate:  a.SampleRate,
		NumChannels: a.NumChannels,
		Text:        a.Text,
	}
	if p.pcm && a.Format == tts.FormatMP3 {
		pcm, rate, err := device.DecodeMP3(a.Data)
		if err != nil {
			return err
		}
		data.Format, data.Audio, data.SampleRate, data.NumChannels = string(tts.FormatPCM16), pcm, rate, 2
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.pending[data.ID] = done
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, data.ID)
		p.mu.Unlock()
	}()

	if err := p.send(ctx, &Command{Type: CommandPlay, Data: data}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finished marks playback id as done.
func (p *RemotePlayer) finished(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done, ok := p.pending[id]; ok {
		close(done)
		delete(p.pending, id)
	}
}

// Stop tells the client to stop and releases every waiting Play.
func (p *RemotePlayer) Stop() error {
	p.mu.Lock()
	for id, done := range p.pending {
		close(done)
		delete(p.pending, id)
	}
	p.mu.Unlock()
	return p.send(context.Background(), &Command{Type: CommandStop})
}
