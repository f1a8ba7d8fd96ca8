package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/chriscow/interview-agents-go/pkg/interview"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

var (
	errClientClosed = errors.New("client closed the connection")
	errConnClosed   = errors.New("connection closed")
)

// Factory builds the controller of one connection around the client's
// microphone and player.
type Factory func(mic voice.Microphone, player voice.Player, logger *slog.Logger) (*interview.Controller, error)

// Config configures a Server.
type Config struct {
	NewController Factory
	// OnController, when set, sees every controller the server creates.
	// The returned func, if any, runs when the connection ends.
	OnController func(*interview.Controller) func()
	// WriteTimeout bounds each websocket write. Zero means 10s.
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Server upgrades HTTP requests to websockets and runs one controller per
// connection.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
	active   atomic.Int64
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.NewController == nil {
		return nil, fmt.Errorf("controller factory is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  65536,
			WriteBufferSize: 65536,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "bridge")),
	}, nil
}

// Active returns the number of open connections.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// ServeHTTP handles one client for the lifetime of its connection. The
// "format=pcm16" query parameter asks for decoded audio instead of mp3.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)

	logger := s.logger.With(slog.String("remote", r.RemoteAddr))
	logger.Info("client connected")

	err = s.serve(r.Context(), ws, r.URL.Query().Get("format") == "pcm16", logger)
	switch {
	case err == nil, errors.Is(err, errClientClosed), errors.Is(err, context.Canceled):
		logger.Info("client disconnected")
	default:
		logger.Warn("connection failed", slog.String("error", err.Error()))
	}
}

// conn is the state of one client connection.
type conn struct {
	ws           *websocket.Conn
	out          chan *Command
	done         <-chan struct{}
	writeTimeout time.Duration
	logger       *slog.Logger

	ctrl   *interview.Controller
	mic    *RemoteMicrophone
	player *RemotePlayer

	sessions sync.WaitGroup
}

func (s *Server) serve(parent context.Context, ws *websocket.Conn, pcm bool, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(parent)

	c := &conn{
		ws:           ws,
		out:          make(chan *Command, 64),
		done:         ctx.Done(),
		writeTimeout: s.cfg.WriteTimeout,
		logger:       logger,
	}
	c.mic = newRemoteMicrophone(c.send, logger)
	c.player = newRemotePlayer(c.send, pcm)

	ctrl, err := s.cfg.NewController(c.mic, c.player, logger)
	if err != nil {
		ws.Close()
		return fmt.Errorf("create controller: %w", err)
	}
	c.ctrl = ctrl
	if s.cfg.OnController != nil {
		if release := s.cfg.OnController(ctrl); release != nil {
			defer release()
		}
	}

	g.Go(func() error { return c.readSignals(ctx) })
	g.Go(func() error { return c.writeCommands(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		return ws.Close()
	})

	err = g.Wait()
	ctrl.EndSession()
	c.sessions.Wait()
	return err
}

// send queues cmd for the writer.
func (c *conn) send(ctx context.Context, cmd *Command) error {
	select {
	case c.out <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errConnClosed
	}
}

func (c *conn) readSignals(ctx context.Context) error {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errClientClosed
			}
			return fmt.Errorf("read signal: %w", err)
		}

		if mt == websocket.BinaryMessage {
			c.mic.write(data)
			continue
		}

		var sig Signal
		if err := json.Unmarshal(data, &sig); err != nil {
			c.send(ctx, &Command{Type: CommandError, Data: map[string]any{"message": "invalid signal: " + err.Error()}})
			continue
		}
		c.handleSignal(ctx, &sig)
	}
}

func (c *conn) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteJSON(cmd); err != nil {
				return fmt.Errorf("write command: %w", err)
			}
		}
	}
}

func (c *conn) handleSignal(ctx context.Context, sig *Signal) {
	c.logger.Debug("processing signal", slog.String("type", sig.Type))

	switch sig.Type {
	case SignalStart:
		c.startSession(ctx, sig.strings("topics"), sig.str("jobContext"))
	case SignalDone:
		c.ctrl.UserDone()
	case SignalEnd:
		c.ctrl.EndSession()
	case SignalMicReady:
		c.mic.resolve(nil)
	case SignalMicError:
		c.mic.resolve(micError(sig.str("kind")))
	case SignalPlaybackDone:
		c.player.finished(sig.str("id"))
	case SignalPing:
		c.send(ctx, &Command{Type: CommandPong, Data: sig.Data})
	default:
		c.logger.Warn("unknown signal type", slog.String("type", sig.Type))
		c.send(ctx, &Command{Type: CommandError, Data: map[string]any{"message": "unknown signal type: " + sig.Type}})
	}
}

// startSession runs a session in the background. Starting while another
// session is live supersedes it.
func (c *conn) startSession(ctx context.Context, topics []string, jobContext string) {
	c.sessions.Add(1)
	go func() {
		defer c.sessions.Done()
		err := c.ctrl.StartSession(ctx, topics, jobContext, func(ev interview.Event) {
			c.send(ctx, &Command{Type: CommandEvent, Data: ev})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Info("session ended with error", slog.String("error", err.Error()))
		}
	}()
}
