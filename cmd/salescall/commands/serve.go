package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-sales/core/metrics"
	"github.com/koscakluka/ema-sales/core/telephony/twilio"
	"github.com/koscakluka/ema-sales/core/texttospeech"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Twilio webhook server",
	Long: `Run the HTTP server Twilio calls while a call is in progress.

Routes:
  POST /call/start            greeting for a newly answered call
  POST /call/handle_response  next line after the lead spoke
  GET  /audio/{id}            synthesized speech clips
  GET  /healthz, /metrics

The server must be reachable at PUBLIC_BASE_URL, e.g. through ngrok.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		directory, err := loadDirectory(ctx, cfg)
		if err != nil {
			return err
		}
		m := metrics.NewMetrics("")
		orchestrator, err := newOrchestrator(ctx, cfg, directory, m)
		if err != nil {
			return err
		}
		synthesizer, err := newSynthesizer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create speech synthesizer: %w", err)
		}

		opts := []twilio.HandlerOption{
			twilio.WithBaseURL(cfg.PublicBaseURL),
			twilio.WithMetricsHandler(m.Handler()),
		}
		if synthesizer != nil {
			opts = append(opts, twilio.WithSynthesizer(synthesizer, texttospeech.NewClips(texttospeech.DefaultClipTTL)))
		}
		if cfg.ValidateSignatures {
			if cfg.PublicBaseURL == "" {
				return errors.New("signature validation needs PUBLIC_BASE_URL")
			}
			opts = append(opts, twilio.WithSignatureValidation(cfg.TwilioAuthToken))
		}
		handler := twilio.NewHandler(orchestrator, opts...)

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler.Instrumented(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("starting webhook server", slog.String("addr", cfg.ListenAddr), slog.String("public_url", cfg.PublicBaseURL))
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default $LISTEN_ADDR or :5001)")
}
