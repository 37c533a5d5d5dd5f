// Package gemini implements [llms.Generator] on top of the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/koscakluka/ema-sales/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

var _ llms.Generator = (*Generator)(nil)

type Generator struct {
	Client *genai.Client

	// Model should not start with "models/"
	Model string
	// Config is passed to every request as is, nil is allowed.
	Config *genai.GenerateContentConfig
}

// New creates a Gemini API client for apiKey and wraps it in a Generator.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}
	return &Generator{Client: client, Model: model}, nil
}

// WithInstructions returns a copy of g that sends instructions as the system
// instruction of every request.
func (g *Generator) WithInstructions(instructions string) *Generator {
	cfg := &genai.GenerateContentConfig{}
	if g.Config != nil {
		copied := *g.Config
		cfg = &copied
	}
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instructions}}}

	return &Generator{Client: g.Client, Model: g.Model, Config: cfg}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", g.Model))

	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), g.Config)
	if err != nil {
		var genaiErr genai.APIError
		if errors.As(err, &genaiErr) {
			span.SetAttributes(
				attribute.Int("response.status_code", genaiErr.Code),
				attribute.String("response.status", genaiErr.Status),
			)
		}
		err = generateError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	text, err := replyText(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "gemini returned no usable reply", slog.String("model", g.Model), slog.Any("error", err))
		return "", err
	}

	if resp.UsageMetadata != nil {
		span.SetAttributes(
			attribute.Int("usage.input", int(resp.UsageMetadata.PromptTokenCount)),
			attribute.Int("usage.output", int(resp.UsageMetadata.CandidatesTokenCount)),
			attribute.Int("usage.total", int(resp.UsageMetadata.TotalTokenCount)),
		)
	}
	return text, nil
}

// generateError names the provider status of err. The original error stays
// in the chain for errors.Is and errors.As.
func generateError(err error) error {
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return fmt.Errorf("gemini generate content: %d %s: %w", genaiErr.Code, genaiErr.Status, err)
	}

	var gaxErr *apierror.APIError
	if errors.As(err, &gaxErr) {
		if reason := gaxErr.Reason(); reason != "" {
			return fmt.Errorf("gemini generate content: %s: %w", reason, err)
		}
		return fmt.Errorf("gemini generate content: %w", gaxErr.Unwrap())
	}

	return fmt.Errorf("gemini generate content: %w", err)
}

// replyText extracts the text of the first candidate. Blocked prompts and
// safety related finish reasons are reported as [llms.ErrContentBlocked].
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked: %s", llms.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII,
		genai.FinishReasonRecitation:
		var categories []string
		for _, rating := range candidate.SafetyRatings {
			if rating.Blocked {
				categories = append(categories, string(rating.Category))
			}
		}
		return "", fmt.Errorf("%w: finish reason %s %s", llms.ErrContentBlocked, candidate.FinishReason, strings.Join(categories, ", "))
	}

	if candidate.Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
