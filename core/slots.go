package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/markers"
	"github.com/koscakluka/ema-sales/core/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var errNoCalendar = errors.New("no calendar configured")

// proposeSlots looks up open meeting times and records them in the call's
// history. It returns the line to speak and whether the call continues.
func (o *Orchestrator) proposeSlots(ctx context.Context, callID string, data callData, reply string) (string, bool) {
	ctx, span := tracer.Start(ctx, "propose slots")
	defer span.End()

	o.store.SetPhase(callID, conversations.PhaseProposingSlots)

	slots, err := o.findSlots(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "failed to look up availability", slog.String("call.id", callID), slog.Any("error", err))
		o.metrics.RecordSlotSearch("error")
		o.store.SetPhase(callID, conversations.PhaseEnding)
		return lineCalendarFailed, false
	}
	span.SetAttributes(attribute.Int("slots.found", len(slots)))

	if len(slots) == 0 {
		logger.WarnContext(ctx, "no available slots", slog.String("call.id", callID))
		o.metrics.RecordSlotSearch("empty")
		o.store.SetPhase(callID, conversations.PhaseEnding)
		return lineCalendarFull, false
	}

	o.metrics.RecordSlotSearch("found")
	o.store.AppendAnnotation(callID, conversations.AnnotationAvailableSlots, slots)
	o.store.SetPhase(callID, conversations.PhaseAwaitingSlotConfirmation)

	spoken := markers.Strip(reply)
	if spoken == "" {
		spoken = lineCheckingTimes
	}
	return spoken + " " + slotOptions(slots), true
}

func (o *Orchestrator) findSlots(ctx context.Context, data callData) ([]scheduling.Slot, error) {
	if o.calendar == nil {
		return nil, errNoCalendar
	}

	params := data.profile.Scheduling
	loc, err := time.LoadLocation(params.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	windowStart := o.now().In(loc)
	windowEnd := windowStart.Add(params.LookAhead())

	busy, err := o.calendar.Busy(ctx, params.CalendarID, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get busy intervals: %w", err)
	}

	starts := scheduling.FindSlots(ctx, scheduling.Query{
		Busy:        busy,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Hours:       data.hours,
		Duration:    params.MeetingDuration(),
		Count:       params.SlotsToPropose,
		Timezone:    params.Timezone,
	})
	return scheduling.ProposeSlots(starts, params.Timezone), nil
}

// slotOptions dictates the proposal so the lead can pick by number.
func slotOptions(slots []scheduling.Slot) string {
	options := make([]string, 0, len(slots))
	for _, slot := range slots {
		options = append(options, fmt.Sprintf("option %d is %s", slot.Index, slot.Label))
	}
	return "I found a few times: " + strings.Join(options, ", ") + ". Does one of those options work for you?"
}
