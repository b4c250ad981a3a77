package availability

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Engine computes bookable slots from weekly rules, one-off blocked dates,
// existing bookings and the booking policy. It holds no state of its own
// and re-reads every collaborator on each call.
type Engine struct {
	Rules    RuleSource
	Bookings BookingSource
	Blocks   BlockSource
	Settings PolicySource

	// Owner is the business's home timezone. All wall-clock anchoring
	// happens here; visitor timezones only relabel the final result.
	Owner *time.Location

	// Now is captured once per invocation so every slot in one result set
	// is filtered against the same cutoff. Defaults to time.Now.
	Now func() time.Time
}

func NewEngine(rules RuleSource, bookings BookingSource, blocks BlockSource, settings PolicySource, owner *time.Location) *Engine {
	return &Engine{
		Rules:    rules,
		Bookings: bookings,
		Blocks:   blocks,
		Settings: settings,
		Owner:    owner,
		Now:      time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// AvailableSlots returns the bookable intervals on date (a "YYYY-MM-DD"
// string interpreted in the owner timezone) for a meeting of
// durationMinutes. An unparseable date yields an empty result, not an
// error. When visitorTZ names a valid zone different from the owner's,
// surviving slots are re-expressed in that zone; the instants themselves
// never change.
func (e *Engine) AvailableSlots(ctx context.Context, date string, durationMinutes int, visitorTZ string) ([]Slot, error) {
	day, err := time.ParseInLocation(dateLayout, date, e.Owner)
	if err != nil {
		return nil, nil
	}

	rules, err := e.Rules.RulesByDay(ctx, int(day.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("fetch rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	pol, err := e.Settings.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}

	blocks, err := e.Blocks.BlocksForDay(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch blocked dates: %w", err)
	}
	for _, b := range blocks {
		if b.AllDay() {
			return nil, nil
		}
	}

	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	bookings, err := e.Bookings.BookingsOverlappingDay(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}

	duration := time.Duration(durationMinutes) * time.Minute
	buffer := time.Duration(pol.BufferMinutes) * time.Minute
	cutoff := e.now().Add(time.Duration(pol.MinNoticeHours) * time.Hour)

	var out []Slot
	for _, r := range rules {
		for _, cand := range e.candidates(r, day, duration, buffer) {
			if cand.Start.Before(cutoff) {
				continue
			}
			if overlapsBooking(cand, bookings, buffer) {
				continue
			}
			if overlapsBlock(cand, blocks, e.Owner) {
				continue
			}
			out = append(out, cand)
		}
	}

	if visitorTZ != "" && visitorTZ != e.Owner.String() {
		if loc, err := time.LoadLocation(visitorTZ); err == nil {
			for i := range out {
				out[i].Start = out[i].Start.In(loc)
				out[i].End = out[i].End.In(loc)
			}
		}
	}
	return out, nil
}

// candidates expands one rule window on day into raw slots. Slots within a
// rule are separated by the buffer; windows from different rules are kept
// independent and never merged or deduplicated against each other.
func (e *Engine) candidates(r Rule, day time.Time, duration, buffer time.Duration) []Slot {
	loc := e.Owner
	if r.Timezone != "" {
		if l, err := time.LoadLocation(r.Timezone); err == nil {
			loc = l
		}
	}
	startTOD, err := parseHHMM(r.StartTime)
	if err != nil {
		return nil
	}
	endTOD, err := parseHHMM(r.EndTime)
	if err != nil {
		return nil
	}

	year, month, dayNum := day.Date()
	windowStart := time.Date(year, month, dayNum, startTOD.Hour(), startTOD.Minute(), 0, 0, loc)
	windowEnd := time.Date(year, month, dayNum, endTOD.Hour(), endTOD.Minute(), 0, 0, loc)

	// An empty or inverted window is stored data we tolerate: zero slots.
	var out []Slot
	for s := windowStart; !s.Add(duration).After(windowEnd); s = s.Add(duration + buffer) {
		out = append(out, Slot{Start: s, End: s.Add(duration), Available: true})
	}
	return out
}

// overlapsBooking reports whether the candidate hits any pending/confirmed
// booking expanded by the buffer on both ends. Half-open intervals:
// [a,b) overlaps [c,d) iff a < d && b > c.
func overlapsBooking(cand Slot, bookings []Booking, buffer time.Duration) bool {
	for _, b := range bookings {
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			continue
		}
		expandedStart := b.StartAt.Add(-buffer)
		expandedEnd := b.EndAt.Add(buffer)
		if cand.Start.Before(expandedEnd) && cand.End.After(expandedStart) {
			return true
		}
	}
	return false
}

// overlapsBlock checks timed blocks only; all-day blocks short-circuit the
// whole computation earlier. The block's sub-range is anchored to the
// candidate's own calendar date in the owner zone, with no buffer
// expansion.
func overlapsBlock(cand Slot, blocks []BlockedDate, owner *time.Location) bool {
	for _, bl := range blocks {
		if bl.AllDay() {
			return true
		}
		startTOD, err := parseHHMM(bl.StartTime)
		if err != nil {
			continue
		}
		endTOD, err := parseHHMM(bl.EndTime)
		if err != nil {
			continue
		}
		year, month, day := cand.Start.In(owner).Date()
		blockStart := time.Date(year, month, day, startTOD.Hour(), startTOD.Minute(), 0, 0, owner)
		blockEnd := time.Date(year, month, day, endTOD.Hour(), endTOD.Minute(), 0, 0, owner)
		if cand.Start.Before(blockEnd) && cand.End.After(blockStart) {
			return true
		}
	}
	return false
}

// AvailableDates scans each calendar day in [startDate, endDate] inclusive
// and returns the dates with at least one bookable slot. Unparseable or
// inverted bounds yield an empty result.
func (e *Engine) AvailableDates(ctx context.Context, startDate, endDate string, durationMinutes int) ([]string, error) {
	from, err := time.ParseInLocation(dateLayout, startDate, e.Owner)
	if err != nil {
		return nil, nil
	}
	to, err := time.ParseInLocation(dateLayout, endDate, e.Owner)
	if err != nil {
		return nil, nil
	}

	var out []string
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format(dateLayout)
		slots, err := e.AvailableSlots(ctx, date, durationMinutes, "")
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			out = append(out, date)
		}
	}
	return out, nil
}

// HasSlotAt re-validates a specific interval at booking time: the exact
// start and end instants must still be present in the engine's output for
// that day. Absence means the slot was consumed between the availability
// query and the booking attempt.
func (e *Engine) HasSlotAt(ctx context.Context, start, end time.Time) (bool, error) {
	date := start.In(e.Owner).Format(dateLayout)
	mins := int(end.Sub(start) / time.Minute)
	slots, err := e.AvailableSlots(ctx, date, mins, "")
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Start.Equal(start) && s.End.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func parseHHMM(s string) (time.Time, error) {
	// Take first 5 chars: "09:00:00.000000" -> "09:00"
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse("15:04", s[:5])
}
