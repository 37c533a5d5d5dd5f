package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/markers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// confirmSlot books the slot the lead chose. Every outcome ends the call, the
// returned flag reports whether a meeting was actually created.
func (o *Orchestrator) confirmSlot(ctx context.Context, callID string, data callData, reply string, marker markers.Result) (string, bool) {
	ctx, span := tracer.Start(ctx, "confirm slot")
	defer span.End()

	o.store.SetPhase(callID, conversations.PhaseAttemptingBooking)
	defer o.store.SetPhase(callID, conversations.PhaseEnding)

	if !marker.Matched {
		logger.ErrorContext(ctx, "failed to extract confirmed slot marker", slog.String("call.id", callID), slog.String("reply", reply))
		o.metrics.RecordBooking("unparsed")
		return lineConfirmUnmatched, false
	}
	if !marker.IndexOK {
		logger.ErrorContext(ctx, "failed to parse confirmed slot index", slog.String("call.id", callID), slog.String("reply", reply))
		o.metrics.RecordBooking("unparsed")
		return lineConfirmBadIndex, false
	}
	span.SetAttributes(attribute.Int("slot.index", marker.Index))

	slots, ok := o.store.LatestSlots(callID)
	if !ok || marker.Index < 0 || marker.Index >= len(slots) {
		logger.ErrorContext(ctx, "confirmed slot not among proposed slots",
			slog.String("call.id", callID), slog.Int("slot.index", marker.Index), slog.Int("slots", len(slots)))
		o.metrics.RecordBooking("invalid_index")
		return lineConfirmMixUp, false
	}
	slot := slots[marker.Index]
	acknowledgement := markers.Strip(reply)

	leadEmail, ok := o.emailResolver.ResolveEmail(data.lead)
	if !ok {
		logger.WarnContext(ctx, "no email found for lead, cannot invite to meeting", slog.String("lead.id", data.lead.ID))
		o.metrics.RecordBooking("no_email")
		return joinLines(acknowledgement, lineNoEmail), false
	}

	params := data.profile.Scheduling
	var attendees []string
	if params.SalesRepresentativeEmail != "" {
		attendees = append(attendees, params.SalesRepresentativeEmail)
	}
	attendees = append(attendees, leadEmail)

	request := calendar.EventRequest{
		CalendarID:  params.CalendarID,
		Summary:     fmt.Sprintf("Sales Call: %s / %s", data.profile.CompanyName, data.lead.Name),
		Description: fmt.Sprintf("Scheduled sales call with %s. Lead ID: %s.", data.lead.Name, data.lead.ID),
		Start:       slot.Start,
		End:         slot.Start.Add(params.MeetingDuration()),
		Timezone:    params.Timezone,
		Attendees:   attendees,
	}

	var event *calendar.Event
	err := errNoCalendar
	if o.calendar != nil {
		event, err = o.calendar.CreateEvent(ctx, request)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "failed to schedule meeting", slog.String("call.id", callID), slog.Any("error", err))
		o.metrics.RecordBooking("failed")
		return joinLines(acknowledgement, lineBookingFailed), false
	}

	logger.InfoContext(ctx, "scheduled meeting",
		slog.String("call.id", callID), slog.String("lead.id", data.lead.ID),
		slog.String("slot", slot.Label), slog.String("event.id", event.ID))
	o.metrics.RecordBooking("scheduled")
	return joinLines(acknowledgement, lineBooked), true
}

func joinLines(lines ...string) string {
	nonEmpty := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, " ")
}
