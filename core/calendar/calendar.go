// Package calendar describes the calendar service the orchestrator checks
// availability against and books meetings in.
package calendar

import (
	"context"
	"time"

	"github.com/koscakluka/ema-sales/core/scheduling"
)

type Calendar interface {
	// Busy returns the busy intervals of calendarID between from and to.
	Busy(ctx context.Context, calendarID string, from, to time.Time) ([]scheduling.BusyInterval, error)
	// CreateEvent books a meeting and invites its attendees.
	CreateEvent(ctx context.Context, req EventRequest) (*Event, error)
}

type EventRequest struct {
	CalendarID  string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	// Timezone is the IANA zone the event is shown in.
	Timezone  string
	Attendees []string
}

type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
	// Link points to the event in the provider's UI, when there is one.
	Link string
}
