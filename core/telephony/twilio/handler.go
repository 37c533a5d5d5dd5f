// Package twilio connects the orchestrator to Twilio programmable voice:
// webhook handlers answering with TwiML and outbound call placement.
package twilio

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	orchestration "github.com/koscakluka/ema-sales/core"
	"github.com/koscakluka/ema-sales/core/telephony"
	"github.com/koscakluka/ema-sales/core/texttospeech"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	StartPath    = "/call/start"
	ResponsePath = "/call/handle_response"
	AudioPath    = "/audio/"

	lineMissingLead = "I'm sorry, there was an issue processing your call. Goodbye."
)

// Conversation is the part of the orchestrator the webhooks drive.
type Conversation interface {
	Start(ctx context.Context, req orchestration.StartRequest) telephony.Directive
	HandleTurn(ctx context.Context, req orchestration.TurnRequest) telephony.Directive
}

var _ Conversation = (*orchestration.Orchestrator)(nil)

type Handler struct {
	conversation Conversation
	synthesizer  texttospeech.Synthesizer
	clips        *texttospeech.Clips
	baseURL      string
	validator    *client.RequestValidator
	metrics      http.Handler

	mux *http.ServeMux
}

type HandlerOption func(*Handler)

// WithSynthesizer plays the main line of every directive as synthesized
// audio instead of Twilio's own voice.
func WithSynthesizer(synthesizer texttospeech.Synthesizer, clips *texttospeech.Clips) HandlerOption {
	return func(h *Handler) {
		h.synthesizer = synthesizer
		if clips != nil {
			h.clips = clips
		}
	}
}

// WithBaseURL sets the public URL Twilio reaches this server at. Callback
// and audio URLs are relative without it.
func WithBaseURL(baseURL string) HandlerOption {
	return func(h *Handler) {
		h.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithSignatureValidation rejects webhooks not signed with authToken. It
// needs the public base URL, since Twilio signs the URL it called.
func WithSignatureValidation(authToken string) HandlerOption {
	return func(h *Handler) {
		if authToken == "" {
			return
		}
		validator := client.NewRequestValidator(authToken)
		h.validator = &validator
	}
}

func WithMetricsHandler(handler http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metrics = handler
	}
}

func NewHandler(conversation Conversation, opts ...HandlerOption) *Handler {
	h := &Handler{
		conversation: conversation,
		clips:        texttospeech.NewClips(texttospeech.DefaultClipTTL),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("TwiML Server is running!"))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("POST "+StartPath, h.signed(http.HandlerFunc(h.handleStart)))
	mux.Handle("POST "+ResponsePath, h.signed(http.HandlerFunc(h.handleResponse)))
	mux.HandleFunc("GET "+AudioPath+"{id}", h.handleAudio)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	h.mux = mux

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Instrumented wraps the handler in an OpenTelemetry server span.
func (h *Handler) Instrumented() http.Handler {
	return otelhttp.NewHandler(h, "salescall",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	leadID := r.FormValue("lead_id")
	if leadID == "" {
		logger.ErrorContext(r.Context(), "lead_id missing from call start")
		http.Error(w, "Mandatory parameter 'lead_id' is missing.", http.StatusBadRequest)
		return
	}

	callID := callIdentifier(r, leadID)
	directive := h.conversation.Start(r.Context(), orchestration.StartRequest{CallID: callID, LeadID: leadID})
	h.respond(w, r, directive, leadID)
}

func (h *Handler) handleResponse(w http.ResponseWriter, r *http.Request) {
	leadID := r.FormValue("lead_id")
	if leadID == "" {
		logger.ErrorContext(r.Context(), "lead_id missing from speech result")
		h.respond(w, r, telephony.HangUp(lineMissingLead), "")
		return
	}

	directive := h.conversation.HandleTurn(r.Context(), orchestration.TurnRequest{
		CallID:    callIdentifier(r, leadID),
		LeadID:    leadID,
		Utterance: strings.TrimSpace(r.FormValue("SpeechResult")),
	})
	h.respond(w, r, directive, leadID)
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	speech, ok := h.clips.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", speech.ContentType)
	_, _ = w.Write(speech.Audio)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, directive telephony.Directive, leadID string) {
	ctx := r.Context()

	actionURL := h.url(ResponsePath + "?" + url.Values{"lead_id": {leadID}}.Encode())
	body, err := render(directive, h.speak(ctx, directive.Say), actionURL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render twiml", slog.Any("error", err))
		http.Error(w, "Server error: could not render response.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(body))
}

// speak resolves the main line to synthesized audio when possible and falls
// back to Twilio's built-in voice.
func (h *Handler) speak(ctx context.Context, text string) twiml.Element {
	if text == "" {
		return nil
	}
	if h.synthesizer == nil {
		return twiml.VoiceSay{Message: text}
	}

	ctx, span := tracer.Start(ctx, "speak line")
	defer span.End()
	span.SetAttributes(attribute.Int("line.characters", len(text)))

	speech, err := h.synthesizer.Synthesize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "speech synthesis failed, using twilio voice", slog.Any("error", err))
		return twiml.VoiceSay{Message: text}
	}

	id := h.clips.Put(speech)
	return twiml.VoicePlay{Url: h.url(AudioPath + id)}
}

func (h *Handler) url(path string) string {
	return h.baseURL + path
}

// signed checks the X-Twilio-Signature header when validation is enabled.
func (h *Handler) signed(next http.Handler) http.Handler {
	if h.validator == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}
		if !h.validator.Validate(h.url(r.URL.RequestURI()), params, r.Header.Get("X-Twilio-Signature")) {
			logger.WarnContext(r.Context(), "rejected webhook with invalid signature", slog.String("path", r.URL.Path))
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callIdentifier is Twilio's call SID, or the lead ID when the request did
// not come from Twilio.
func callIdentifier(r *http.Request, leadID string) string {
	if sid := r.FormValue("CallSid"); sid != "" {
		return sid
	}
	return leadID
}
