package scheduling

import (
	"log/slog"
	"time"
)

const slotLayout = "Monday, January 02 at 03:04 PM MST"

// Slot is a proposed meeting start. Index is its stable position in the
// proposal it was offered in.
type Slot struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

// FormatSlot renders start for speaking, e.g.
// "Tuesday, May 21 at 02:00 PM EDT". An unknown timezone falls back to the
// location start already carries.
func FormatSlot(start time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Error("unknown timezone for formatting", slog.String("timezone", timezone), slog.Any("error", err))
		return start.Format(slotLayout)
	}

	return start.In(loc).Format(slotLayout)
}

// ProposeSlots indexes starts in order and attaches their spoken labels.
func ProposeSlots(starts []time.Time, timezone string) []Slot {
	slots := make([]Slot, 0, len(starts))
	for i, start := range starts {
		slots = append(slots, Slot{Index: i, Start: start, Label: FormatSlot(start, timezone)})
	}
	return slots
}
