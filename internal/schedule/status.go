// Package schedule decides which school-hours banner applies at a given
// moment.
package schedule

import (
	"fmt"
	"math"
	"time"
)

// Day boundaries as fractional hours of the school's wall clock.
const (
	StartHour     = 6.5  // 06:30
	EndHour       = 15.0 // 15:00
	FridayEndHour = 12.0 // 12:00
)

// Kind is the closed set of banner variants.
type Kind int

const (
	Holiday Kind = iota
	NotYetStarted
	InSession
	Finished
)

func (k Kind) String() string {
	switch k {
	case Holiday:
		return "holiday"
	case NotYetStarted:
		return "not_yet_started"
	case InSession:
		return "in_session"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Context is everything Evaluate looks at.
type Context struct {
	Weekday time.Weekday
	Hour    float64 // [0,24)
	Holiday bool
}

// Status is the evaluated banner. HoursLeft is only meaningful for
// NotYetStarted and InSession and is rounded to one decimal place.
type Status struct {
	Kind      Kind    `json:"kind"`
	HoursLeft float64 `json:"hours_left,omitempty"`
}

// Evaluate applies the rules in order: weekend or holiday, before start,
// before end, finished.
func Evaluate(c Context) Status {
	if c.Weekday == time.Saturday || c.Weekday == time.Sunday || c.Holiday {
		return Status{Kind: Holiday}
	}

	end := EndHour
	if c.Weekday == time.Friday {
		end = FridayEndHour
	}

	switch {
	case c.Hour < StartHour:
		return Status{Kind: NotYetStarted, HoursLeft: round1(StartHour - c.Hour)}
	case c.Hour < end:
		return Status{Kind: InSession, HoursLeft: round1(end - c.Hour)}
	default:
		return Status{Kind: Finished}
	}
}

// Message renders the banner text shown on the board.
func (s Status) Message() string {
	switch s.Kind {
	case Holiday:
		return "🎉 Hari ini libur."
	case NotYetStarted:
		return fmt.Sprintf("🏫 Sekolah dimulai dalam %.1f jam lagi.", s.HoursLeft)
	case InSession:
		return fmt.Sprintf("⏰ Sekolah akan selesai dalam %.1f jam lagi.", s.HoursLeft)
	case Finished:
		return "✅ Sekolah sudah selesai hari ini."
	default:
		return ""
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
