// Package datenorm turns the loosely-typed date cells of the class
// spreadsheet into plain calendar dates and renders them for display.
package datenorm

import (
	"fmt"
	"time"

	"github.com/go-playground/locales/id"
)

// InvalidText is shown in place of a date that could not be normalized.
const InvalidText = "Tanggal Tidak Valid"

// indonesian supplies the month-name table used by Format.
var indonesian = id.New()

// Date is a calendar date without a time of day. Month is 0-based (0 is
// January) to match the spreadsheet's Date(y,m,d) cell encoding.
//
// The zero value is not a valid date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// FromTime keeps only the wall-clock date of t, in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m) - 1, Day: d}
}

// Today returns the date of now as seen in now's location.
func Today(now time.Time) Date {
	return FromTime(now)
}

// Valid reports whether d names a real calendar day.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 9999 {
		return false
	}
	if d.Month < 0 || d.Month > 11 {
		return false
	}
	if d.Day < 1 {
		return false
	}
	// time.Date normalizes overflow (Feb 30 -> Mar 2); a round trip that
	// changes the triple means the day does not exist.
	return FromTime(d.Time(time.UTC)) == d
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, time.Month(d.Month+1), d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time(time.UTC).AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1 as d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(d.Month, other.Month)
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// ISO renders d as YYYY-MM-DD, the key format of the holiday calendar.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month+1, d.Day)
}

// String renders d as "1 Juni 2025".
func (d Date) String() string {
	return Format(d)
}

// Format renders d as "<day> <month> <year>" with Indonesian month names.
// Invalid dates render as InvalidText.
func Format(d Date) string {
	if !d.Valid() {
		return InvalidText
	}
	return fmt.Sprintf("%d %s %d", d.Day, indonesian.MonthWide(time.Month(d.Month+1)), d.Year)
}

// SameDay reports whether a and b are the same calendar day. It is false
// when either side is invalid.
func SameDay(a, b Date) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return a == b
}

// Parse reads a strict YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("datenorm: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
