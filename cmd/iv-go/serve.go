package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chriscow/interview-agents-go/internal/bridge"
	"github.com/chriscow/interview-agents-go/internal/config"
	"github.com/chriscow/interview-agents-go/pkg/interview"
	"github.com/chriscow/interview-agents-go/pkg/version"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve interviews to browser clients over WebSocket",
	Long: `Serve interviews over WebSocket. The client owns the microphone and the
speaker; the server runs the controller and streams questions and feedback.
Controller metrics are published at /debug/vars.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Bridge.Addr = addr
		}
		cfg.Audio.SaveAnswers = ""

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg, logger)
	},
}

var sessionVars = expvar.NewMap("interview")

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var conns atomic.Int64
	srv, err := bridge.New(bridge.Config{
		NewController: func(mic voice.Microphone, player voice.Player, logger *slog.Logger) (*interview.Controller, error) {
			return buildController(cfg, mic, player, nil, logger)
		},
		OnController: func(ctrl *interview.Controller) func() {
			key := fmt.Sprintf("conn_%d", conns.Add(1))
			sessionVars.Set(key, ctrl.Metrics().Map())
			return func() { sessionVars.Delete(key) }
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Bridge.Path, srv)
	mux.Handle("/debug/vars", expvar.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.Bridge.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving interviews", append(version.LogAttrs(),
			slog.String("addr", cfg.Bridge.Addr),
			slog.String("path", cfg.Bridge.Path))...)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", slog.Int("active_sessions", srv.Active()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
