package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/koscakluka/ema-sales/core/leads"
	twilio "github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// Dialer places outbound calls that Twilio connects to this server's start
// webhook.
type Dialer struct {
	calls   callCreator
	from    string
	baseURL string
}

// NewDialer authenticates with the account SID and auth token. baseURL is
// the public URL the webhook handler is reachable at.
func NewDialer(accountSID, authToken, from, baseURL string) (*Dialer, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("twilio credentials not configured")
	}
	if from == "" {
		return nil, errors.New("twilio phone number not configured")
	}
	if baseURL == "" {
		return nil, errors.New("public base url not configured")
	}

	restClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Dialer{
		calls:   restClient.Api,
		from:    from,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dial calls lead. An empty to calls the lead's own number.
func (d *Dialer) Dial(ctx context.Context, lead leads.Lead, to string) (string, error) {
	ctx, span := tracer.Start(ctx, "place call")
	defer span.End()

	if to == "" {
		to = lead.PhoneNumber
	}
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.from)
	params.SetUrl(d.baseURL + StartPath + "?" + url.Values{"lead_id": {lead.ID}}.Encode())
	params.SetMethod("POST")

	call, err := d.calls.CreateCall(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to create call: %w", err)
	}
	if call == nil || call.Sid == nil {
		return "", errors.New("twilio returned no call sid")
	}

	logger.InfoContext(ctx, "call initiated", slog.String("lead.id", lead.ID), slog.String("call.sid", *call.Sid))
	return *call.Sid, nil
}
