package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/koscakluka/ema-sales/cmd/salescall/internal/config"
	orchestration "github.com/koscakluka/ema-sales/core"
	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/calendar/google"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/llms"
	"github.com/koscakluka/ema-sales/core/llms/gemini"
	"github.com/koscakluka/ema-sales/core/llms/groq"
	"github.com/koscakluka/ema-sales/core/llms/openai"
	"github.com/koscakluka/ema-sales/core/metrics"
	"github.com/koscakluka/ema-sales/core/texttospeech"
	"github.com/koscakluka/ema-sales/core/texttospeech/deepgram"
)

func newGenerator(ctx context.Context, cfg config.Config) (llms.Generator, error) {
	apiKey, err := cfg.GeneratorKey()
	if err != nil {
		return nil, err
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		var opts []openai.ClientOption
		if cfg.OpenAIModel != "" {
			opts = append(opts, openai.WithModel(cfg.OpenAIModel))
		}
		return openai.NewClient(apiKey, opts...), nil
	case config.ProviderGroq:
		var opts []groq.ClientOption
		if cfg.GroqModel != "" {
			opts = append(opts, groq.WithModel(cfg.GroqModel))
		}
		return groq.NewClient(apiKey, opts...), nil
	default:
		generator, err := gemini.New(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return generator, nil
	}
}

// newCalendar uses Google Calendar when credentials are configured and an
// in-memory calendar otherwise, so nothing is booked for real.
func newCalendar(ctx context.Context, cfg config.Config) (calendar.Calendar, error) {
	if cfg.GoogleCredentialsFile == "" {
		slog.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, bookings stay in memory")
		return calendar.NewMemory(), nil
	}

	cal, err := google.NewFromCredentialsFile(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create google calendar client: %w", err)
	}
	return cal, nil
}

// newSynthesizer returns nil when no Deepgram key is set, Twilio's own voice
// is used then.
func newSynthesizer(cfg config.Config) (texttospeech.Synthesizer, error) {
	if cfg.DeepgramAPIKey == "" {
		return nil, nil
	}

	voice, err := deepgram.ParseVoice(cfg.DeepgramVoice)
	if err != nil {
		return nil, err
	}
	client, err := deepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, deepgram.WithVoice(voice))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newOrchestrator(ctx context.Context, cfg config.Config, directory leads.Directory, m *metrics.Metrics) (*orchestration.Orchestrator, error) {
	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	cal, err := newCalendar(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return orchestration.NewOrchestrator(
		orchestration.WithGenerator(generator),
		orchestration.WithCalendar(cal),
		orchestration.WithDirectory(directory),
		orchestration.WithMetrics(m),
	), nil
}
