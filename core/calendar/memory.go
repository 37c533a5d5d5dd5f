package calendar

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-sales/core/scheduling"
)

var _ Calendar = (*Memory)(nil)

// Memory is an in-process calendar. Booked events count as busy time.
type Memory struct {
	mu     sync.Mutex
	busy   map[string][]scheduling.BusyInterval
	events []Event
}

func NewMemory() *Memory {
	return &Memory{busy: make(map[string][]scheduling.BusyInterval)}
}

// AddBusy marks [start, end) as busy on calendarID.
func (m *Memory) AddBusy(calendarID string, start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.busy[calendarID] = append(m.busy[calendarID], scheduling.BusyInterval{
		Start: start.UTC().Format(time.RFC3339),
		End:   end.UTC().Format(time.RFC3339),
	})
}

func (m *Memory) Busy(_ context.Context, calendarID string, from, to time.Time) ([]scheduling.BusyInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var busy []scheduling.BusyInterval
	for _, period := range m.busy[calendarID] {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("stored busy interval: %w", err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("stored busy interval: %w", err)
		}
		if start.Before(to) && end.After(from) {
			busy = append(busy, period)
		}
	}
	return busy, nil
}

func (m *Memory) CreateEvent(_ context.Context, req EventRequest) (*Event, error) {
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("event must end after it starts")
	}

	event := Event{ID: uuid.NewString()}
	if err := copier.Copy(&event, &req); err != nil {
		return nil, fmt.Errorf("failed to copy event request: %w", err)
	}
	event.Attendees = slices.Clone(req.Attendees)

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.AddBusy(req.CalendarID, req.Start, req.End)

	created := event
	return &created, nil
}

// Events returns the events booked so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.events)
}
