package scheduling

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// FallbackStep is how far the scan pointer moves when jumping to the end of
// an overlapping busy interval would not move it forward.
const FallbackStep = 15 * time.Minute

// BusyInterval is a calendar-reported unavailable range. Start and End are
// RFC 3339 instants, either with a "Z" suffix or an explicit offset.
type BusyInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Query describes a single slot search.
type Query struct {
	Busy        []BusyInterval
	WindowStart time.Time
	WindowEnd   time.Time
	Hours       BusinessHours
	Duration    time.Duration
	// Count is the maximum number of slots to return.
	Count int
	// Timezone is the IANA zone that business hours and days are expressed
	// in.
	Timezone string
}

type interval struct {
	start time.Time
	end   time.Time
}

// FindSlots returns up to q.Count meeting start times, in chronological order,
// that fall within business hours on business days between the dates of
// q.WindowStart and q.WindowEnd (inclusive) and overlap none of the busy
// intervals.
//
// Returned instants carry the target timezone as their location. An unknown
// timezone yields no slots.
func FindSlots(ctx context.Context, q Query) []time.Time {
	ctx, span := tracer.Start(ctx, "find slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("slots.timezone", q.Timezone),
		attribute.Int("slots.requested", q.Count),
		attribute.Int("slots.busy", len(q.Busy)),
	)

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		logger.ErrorContext(ctx, "unknown timezone", slog.String("timezone", q.Timezone), slog.Any("error", err))
		return nil
	}
	if q.Duration <= 0 || q.Count <= 0 {
		return nil
	}

	busy := normalizeBusy(ctx, q.Busy)

	slots := []time.Time{}
	current := q.WindowStart.In(loc)
	final := q.WindowEnd.In(loc)

	for !isLaterDate(current, final) && len(slots) < q.Count {
		year, month, day := current.Date()
		nextDay := q.Hours.Start.On(year, month, day+1, loc)

		if !q.Hours.allows(current.Weekday()) {
			current = nextDay
			continue
		}

		dayStart := q.Hours.Start.On(year, month, day, loc)
		dayEnd := q.Hours.End.On(year, month, day, loc)
		if current.Before(dayStart) {
			current = dayStart
		}

		for current.Before(dayEnd) && len(slots) < q.Count {
			candidate := current
			candidateEnd := candidate.Add(q.Duration)
			if candidateEnd.After(dayEnd) {
				break
			}

			blocker, blocked := firstOverlap(busy, candidate, candidateEnd)
			if !blocked {
				slots = append(slots, candidate)
				current = candidateEnd
				continue
			}

			current = advancePast(candidate, blocker.end.In(loc))
		}

		current = nextDay
	}

	span.SetAttributes(attribute.Int("slots.found", len(slots)))
	return slots
}

// advancePast returns where the scan continues after candidate was found to
// overlap a busy interval ending at busyEnd. The pointer always moves
// forward, by FallbackStep if busyEnd does not lie after candidate.
func advancePast(candidate, busyEnd time.Time) time.Time {
	if busyEnd.After(candidate) {
		return busyEnd
	}
	return candidate.Add(FallbackStep)
}

func firstOverlap(busy []interval, start, end time.Time) (interval, bool) {
	for _, period := range busy {
		if start.Before(period.end) && end.After(period.start) {
			return period, true
		}
	}
	return interval{}, false
}

func normalizeBusy(ctx context.Context, raw []BusyInterval) []interval {
	busy := make([]interval, 0, len(raw))
	for _, period := range raw {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			logger.WarnContext(ctx, "skipping unparseable busy interval",
				slog.String("start", period.Start), slog.String("end", period.End), slog.Any("error", err))
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			logger.WarnContext(ctx, "skipping unparseable busy interval",
				slog.String("start", period.Start), slog.String("end", period.End), slog.Any("error", err))
			continue
		}
		busy = append(busy, interval{start: start.UTC(), end: end.UTC()})
	}

	slices.SortFunc(busy, func(a, b interval) int { return a.start.Compare(b.start) })
	return busy
}

// isLaterDate reports whether a's calendar date is after b's, both read in
// their own locations.
func isLaterDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return cmp.Or(cmp.Compare(ay, by), cmp.Compare(am, bm), cmp.Compare(ad, bd)) > 0
}
