package orchestration

import (
	"context"
	"log/slog"

	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/telephony"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type StartRequest struct {
	CallID string
	LeadID string
}

// Start opens a call with a fresh conversation and returns the greeting. Any
// state left over under the same call ID is discarded.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) telephony.Directive {
	unlock := o.store.Lock(req.CallID)
	defer unlock()

	ctx, span := tracer.Start(ctx, "start call")
	defer span.End()
	span.SetAttributes(
		attribute.String("call.id", req.CallID),
		attribute.String("lead.id", req.LeadID),
	)

	o.store.Clear(ctx, req.CallID)
	o.store.SetLead(req.CallID, req.LeadID)
	o.metrics.SetActiveCalls(o.store.Len())

	data, err := o.loadCallData(ctx, req.LeadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "lead or company profile not found",
			slog.String("call.id", req.CallID), slog.String("lead.id", req.LeadID), slog.Any("error", err))
		o.store.SetPhase(req.CallID, conversations.PhaseError)
		o.endCall(ctx, req.CallID, "data_missing")
		return telephony.HangUp(lineDataMissing)
	}

	logger.InfoContext(ctx, "starting call", slog.String("call.id", req.CallID), slog.String("lead.id", req.LeadID))
	return telephony.Listen(greeting(data.profile, data.lead), lineGreetingSilence)
}
