// Package holiday answers "is this date a school holiday" from a public
// holiday calendar, either a JSON date map or an ICS feed.
package holiday

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadCalendar is returned when a calendar document cannot be decoded.
var ErrBadCalendar = errors.New("holiday: malformed calendar")

// Calendar is a set of holiday dates keyed by YYYY-MM-DD, each with a
// (possibly empty) description.
type Calendar struct {
	days map[string]string
}

// NewCalendar builds a Calendar from date -> name pairs.
func NewCalendar(days map[string]string) Calendar {
	c := Calendar{days: make(map[string]string, len(days))}
	for k, v := range days {
		c.days[k] = v
	}
	return c
}

// Contains reports whether date (YYYY-MM-DD) is a holiday.
func (c Calendar) Contains(date string) bool {
	_, ok := c.days[date]
	return ok
}

// Name returns the holiday description for date, if any.
func (c Calendar) Name(date string) string {
	return c.days[date]
}

// Len returns the number of holiday dates.
func (c Calendar) Len() int { return len(c.days) }

// Dates returns all holiday dates in ascending order.
func (c Calendar) Dates() []string {
	out := make([]string, 0, len(c.days))
	for k := range c.days {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DecodeJSON reads a document of the form
//
//	{"2025-08-17": {"summary": "Hari Kemerdekaan"}, ...}
//
// Presence of a key marks a holiday. The value shape is not fixed across
// publishers, so the description is extracted best-effort.
func DecodeJSON(body []byte) (Calendar, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Calendar{}, fmt.Errorf("%w: %w", ErrBadCalendar, err)
	}
	days := make(map[string]string, len(raw))
	for k, v := range raw {
		days[k] = describeEntry(v)
	}
	return Calendar{days: days}, nil
}

func describeEntry(v json.RawMessage) string {
	var entry struct {
		Summary     json.RawMessage `json:"summary"`
		Description json.RawMessage `json:"description"`
	}
	if err := json.Unmarshal(v, &entry); err != nil {
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
		return ""
	}
	for _, field := range []json.RawMessage{entry.Summary, entry.Description} {
		if len(field) == 0 {
			continue
		}
		var s string
		if json.Unmarshal(field, &s) == nil {
			return s
		}
		var list []string
		if json.Unmarshal(field, &list) == nil {
			return strings.Join(list, ", ")
		}
	}
	return ""
}
