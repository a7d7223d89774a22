package holiday

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "schoolboard/internal/log"
)

// maxOccurrencesPerEvent caps RRULE expansion of a single event.
const maxOccurrencesPerEvent = 1000

// icsEvent is the subset of a VEVENT the holiday calendar needs.
type icsEvent struct {
	UID     string
	Summary string
	Start   time.Time
	// End is exclusive. For single-day entries it is Start + 1 day.
	End      time.Time
	RawRRule string
	ExDates  []time.Time
}

// DecodeICS parses an ICS document and returns every holiday date that
// falls in [from, to), expanding recurring events.
func DecodeICS(body []byte, from, to time.Time) (Calendar, error) {
	if len(body) == 0 {
		return Calendar{}, fmt.Errorf("%w: empty ICS body", ErrBadCalendar)
	}
	if to.Before(from) {
		return Calendar{}, errors.New("holiday: range end is before range start")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return Calendar{}, fmt.Errorf("%w: %w", ErrBadCalendar, err)
	}

	days := make(map[string]string)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "err", perr.Error())
			continue
		}
		for _, start := range occurrences(ev, from, to) {
			span := ev.End.Sub(ev.Start)
			markDays(days, start, start.Add(span), ev.Summary)
		}
	}

	appLog.Debug("ics holiday calendar decoded", "events", len(cal.Events()), "days", len(days))
	return Calendar{days: days}, nil
}

func parseVEvent(ve *ical.VEvent) (icsEvent, error) {
	var out icsEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return out, fmt.Errorf("event %q: missing DTSTART", out.UID)
	}
	start, err := parseICSTime(startProp.Value)
	if err != nil {
		return out, fmt.Errorf("event %q: DTSTART: %w", out.UID, err)
	}
	out.Start = start
	out.End = start.AddDate(0, 0, 1)

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && endProp.Value != "" {
		if end, err := parseICSTime(endProp.Value); err == nil && end.After(start) {
			out.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times, each possibly comma-separated.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// occurrences returns the start of every instance of ev that overlaps
// [from, to).
func occurrences(ev icsEvent, from, to time.Time) []time.Time {
	if ev.RawRRule == "" {
		if ev.End.After(from) && ev.Start.Before(to) {
			return []time.Time{ev.Start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule parse failed", "uid", ev.UID, "rrule", ev.RawRRule, "err", err.Error())
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the window by the event span so instances starting before
	// `from` but still running are included.
	span := ev.End.Sub(ev.Start)
	out := set.Between(from.Add(-span), to, true)
	if len(out) > maxOccurrencesPerEvent {
		appLog.Warn("ics rrule truncated", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		out = out[:maxOccurrencesPerEvent]
	}
	return out
}

// markDays adds every calendar day in [start, end) to days.
func markDays(days map[string]string, start, end time.Time, name string) {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for day.Before(end) {
		key := day.Format(time.DateOnly)
		if days[key] == "" {
			days[key] = name
		}
		day = day.AddDate(0, 0, 1)
	}
}

// parseICSTime parses a basic ICS date or date-time value. Floating and
// date-only values are read in UTC; holidays are whole days so only the
// calendar fields matter.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Floating date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, time.UTC)
}
