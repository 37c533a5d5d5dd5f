// Package google implements [calendar.Calendar] with the Google Calendar API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var _ calendar.Calendar = (*Calendar)(nil)

type Calendar struct {
	service *gcal.Service
}

// New connects to Google Calendar. Without options the application default
// credentials are used.
func New(ctx context.Context, opts ...option.ClientOption) (*Calendar, error) {
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Calendar{service: service}, nil
}

// NewFromCredentialsFile connects with a service account key file.
func NewFromCredentialsFile(ctx context.Context, path string) (*Calendar, error) {
	if path == "" {
		return nil, errors.New("calendar credentials file is required")
	}
	return New(ctx, option.WithCredentialsFile(path), option.WithScopes(gcal.CalendarScope))
}

func (c *Calendar) Busy(ctx context.Context, calendarID string, from, to time.Time) ([]scheduling.BusyInterval, error) {
	ctx, span := tracer.Start(ctx, "query free busy")
	defer span.End()
	span.SetAttributes(attribute.String("calendar.id", calendarID))

	resp, err := c.service.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  from.UTC().Format(time.RFC3339),
		TimeMax:  to.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
		Items:    []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		err = fmt.Errorf("free busy query: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, ok := resp.Calendars[calendarID]
	if !ok {
		err := fmt.Errorf("free busy response has no calendar %q", calendarID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(result.Errors) > 0 {
		err := fmt.Errorf("free busy query for %q: %s", calendarID, result.Errors[0].Reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	busy := make([]scheduling.BusyInterval, 0, len(result.Busy))
	for _, period := range result.Busy {
		busy = append(busy, scheduling.BusyInterval{Start: period.Start, End: period.End})
	}
	span.SetAttributes(attribute.Int("calendar.busy", len(busy)))
	return busy, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, req calendar.EventRequest) (*calendar.Event, error) {
	ctx, span := tracer.Start(ctx, "create event")
	defer span.End()
	span.SetAttributes(
		attribute.String("calendar.id", req.CalendarID),
		attribute.Int("event.attendees", len(req.Attendees)),
	)

	attendees := make([]*gcal.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := c.service.Events.Insert(req.CalendarID, &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: req.Timezone},
		End:         &gcal.EventDateTime{DateTime: req.End.Format(time.RFC3339), TimeZone: req.Timezone},
		Attendees:   attendees,
		Reminders:   &gcal.EventReminders{UseDefault: true},
	}).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		err = fmt.Errorf("insert event: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.InfoContext(ctx, "calendar event created",
		slog.String("event.id", created.Id),
		slog.String("event.link", created.HtmlLink))

	return &calendar.Event{
		ID:          created.Id,
		CalendarID:  req.CalendarID,
		Summary:     req.Summary,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Timezone:    req.Timezone,
		Attendees:   req.Attendees,
		Link:        created.HtmlLink,
	}, nil
}
