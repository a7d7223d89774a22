package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolboard/internal/datenorm"
	appLog "schoolboard/internal/log"
)

// DefaultOffset is the school's distance from UTC (WIB).
const DefaultOffset = 7 * time.Hour

// ErrHolidayLookup wraps any failure of the holiday calendar. The status is
// not guessed when the calendar cannot be read.
var ErrHolidayLookup = errors.New("schedule: holiday lookup failed")

// Zone returns a fixed zone for offset, independent of the host's TZ data.
func Zone(offset time.Duration) *time.Location {
	if offset == DefaultOffset {
		return time.FixedZone("WIB", int(offset/time.Second))
	}
	return time.FixedZone(fmt.Sprintf("UTC%+g", offset.Hours()), int(offset/time.Second))
}

// ToSchoolTime shifts t onto the school's wall clock.
func ToSchoolTime(t time.Time, offset time.Duration) time.Time {
	return t.In(Zone(offset))
}

// HourOf returns hour + minute/60 of t's wall clock.
func HourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// HolidayChecker answers whether an ISO date (YYYY-MM-DD) is a holiday.
type HolidayChecker interface {
	IsHoliday(ctx context.Context, date string) (bool, error)
}

// Report is a Status together with the wall-clock moment it was computed
// for.
type Report struct {
	Status  Status        `json:"status"`
	Message string        `json:"message"`
	Date    datenorm.Date `json:"-"`
	At      time.Time     `json:"at"`
}

// Evaluator computes the current Status from a clock and a holiday
// calendar.
type Evaluator struct {
	Holidays HolidayChecker
	Offset   time.Duration
	Now      func() time.Time
}

// NewEvaluator returns an Evaluator on the real clock.
func NewEvaluator(h HolidayChecker, offset time.Duration) *Evaluator {
	return &Evaluator{Holidays: h, Offset: offset, Now: time.Now}
}

// Context builds the evaluation input for the current moment. Weekends do
// not consult the holiday calendar since they are closed either way.
func (e *Evaluator) Context(ctx context.Context) (Context, time.Time, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	local := ToSchoolTime(now(), e.Offset)

	c := Context{Weekday: local.Weekday(), Hour: HourOf(local)}
	if c.Weekday == time.Saturday || c.Weekday == time.Sunday {
		return c, local, nil
	}
	if e.Holidays == nil {
		return c, local, fmt.Errorf("%w: no holiday calendar configured", ErrHolidayLookup)
	}

	key := datenorm.FromTime(local).ISO()
	holiday, err := e.Holidays.IsHoliday(ctx, key)
	if err != nil {
		appLog.Error("holiday lookup failed", err, "date", key)
		return c, local, fmt.Errorf("%w: %s: %w", ErrHolidayLookup, key, err)
	}
	c.Holiday = holiday
	return c, local, nil
}

// Current evaluates the banner for now.
func (e *Evaluator) Current(ctx context.Context) (Report, error) {
	c, local, err := e.Context(ctx)
	if err != nil {
		return Report{}, err
	}
	s := Evaluate(c)
	return Report{
		Status:  s,
		Message: s.Message(),
		Date:    datenorm.FromTime(local),
		At:      local,
	}, nil
}
