package orchestration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/llms"
	"github.com/koscakluka/ema-sales/core/markers"
	"github.com/koscakluka/ema-sales/core/telephony"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TurnRequest is one thing the lead said, as transcribed by the telephony
// provider.
type TurnRequest struct {
	CallID string
	// LeadID is remembered on the first turn that carries it.
	LeadID    string
	Utterance string
}

// HandleTurn advances the call by one exchange and tells the telephony layer
// what to say next. Turns of the same call are processed one at a time.
//
// Failures never escape as errors, every outcome is a line to speak, and
// calls that cannot continue are hung up.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) telephony.Directive {
	callID := req.CallID
	unlock := o.store.Lock(callID)
	defer unlock()

	ctx, span := tracer.Start(ctx, "handle turn")
	defer span.End()
	span.SetAttributes(attribute.String("call.id", callID))

	directive, phase := o.handleTurn(ctx, req)
	span.SetAttributes(
		attribute.String("call.phase", string(phase)),
		attribute.Bool("call.hangup", directive.Hangup),
	)
	o.metrics.RecordTurn(string(phase))
	return directive
}

func (o *Orchestrator) handleTurn(ctx context.Context, req TurnRequest) (telephony.Directive, conversations.Phase) {
	callID := req.CallID
	utterance := strings.TrimSpace(req.Utterance)

	if o.store.HistoryLength(callID) >= o.maxTurns {
		logger.WarnContext(ctx, "max conversation turns reached, ending call",
			slog.String("call.id", callID), slog.Int("max_turns", o.maxTurns))
		o.endCall(ctx, callID, "max_turns")
		return telephony.HangUp(lineMaxTurns), conversations.PhaseEnding
	}

	state := o.store.Get(callID)
	o.metrics.SetActiveCalls(o.store.Len())
	startedInGreeting := state.Phase == conversations.PhaseGreeting
	if startedInGreeting {
		o.store.SetPhase(callID, conversations.PhaseQualifying)
		state.Phase = conversations.PhaseQualifying
	}

	leadID := state.LeadID
	if leadID == "" {
		leadID = req.LeadID
		o.store.SetLead(callID, leadID)
	}

	data, err := o.loadCallData(ctx, leadID)
	if err != nil {
		logger.ErrorContext(ctx, "essential call data missing",
			slog.String("call.id", callID), slog.String("lead.id", leadID), slog.Any("error", err))
		o.store.SetPhase(callID, conversations.PhaseError)
		o.endCall(ctx, callID, "data_missing")
		return telephony.HangUp(lineDataMissing), conversations.PhaseError
	}

	if utterance == "" && !startedInGreeting {
		retries := o.store.IncrementRetry(callID)
		logger.InfoContext(ctx, "empty transcription, re-prompting",
			slog.String("call.id", callID), slog.String("phase", string(state.Phase)), slog.Int("retries", retries))
		if retries > o.maxRetries {
			o.store.SetPhase(callID, conversations.PhaseEnding)
			o.endCall(ctx, callID, "no_input")
			return telephony.HangUp(lineStillNoInput), conversations.PhaseEnding
		}
		return telephony.Directive{
			Say:     lineReprompt,
			Prompt:  lineRepromptAsk,
			NoInput: lineStillNoInput,
		}, state.Phase
	}
	o.store.ResetRetry(callID)

	reply, err := o.generate(ctx, buildPrompt(state.History, data.profile, data.lead, state.Phase, utterance))
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate reply", slog.String("call.id", callID), slog.Any("error", err))
		o.store.SetPhase(callID, conversations.PhaseError)
		o.endCall(ctx, callID, "generation_failed")
		if errors.Is(err, llms.ErrContentBlocked) {
			return telephony.HangUp(lineContentBlocked), conversations.PhaseError
		}
		return telephony.HangUp(lineGenerationFailed), conversations.PhaseError
	}
	if strings.TrimSpace(reply) == "" {
		logger.WarnContext(ctx, "generator returned an empty reply", slog.String("call.id", callID))
		reply = lineEmptyReply
	}

	o.store.AppendTurn(callID, utterance, reply)

	marker := markers.Parse(reply)
	spoken := reply
	hangup := marker.Hangup
	scheduled := false
	switch marker.Kind {
	case markers.KindPropose:
		var proceed bool
		spoken, proceed = o.proposeSlots(ctx, callID, data, reply)
		hangup = hangup || !proceed
	case markers.KindConfirm:
		spoken, scheduled = o.confirmSlot(ctx, callID, data, reply, marker)
		hangup = true
	}

	line := markers.Strip(spoken)
	if line == "" {
		line = lineNotSure
		if hangup {
			line = lineGoodbye
		}
	}

	phase := o.store.Get(callID).Phase
	if hangup || scheduled || phase == conversations.PhaseEnding {
		o.endCall(ctx, callID, endReason(marker, scheduled))
		return telephony.HangUp(line), conversations.PhaseEnding
	}

	return telephony.Listen(line, lineNoInput), phase
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	if o.generator == nil {
		return "", errors.New("no generator configured")
	}

	started := time.Now()
	reply, err := o.generator.Generate(ctx, prompt)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, llms.ErrContentBlocked) {
			status = "blocked"
		}
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.metrics.RecordGeneration(status, time.Since(started))
	return reply, err
}

func endReason(marker markers.Result, scheduled bool) string {
	switch {
	case scheduled:
		return "scheduled"
	case marker.Kind == markers.KindConfirm:
		return "handoff"
	case marker.Kind == markers.KindPropose:
		return "no_slots"
	default:
		return "hangup"
	}
}
