package datenorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	appLog "schoolboard/internal/log"
)

// Raw is a date cell as delivered by the spreadsheet. It is one of
// Serial, Structured or Text.
type Raw interface {
	isRaw()
}

// Serial is a spreadsheet serial day number; day 0 is 1899-12-30.
type Serial float64

// Structured is an already split date. Month is 0-based.
type Structured struct {
	Year  int
	Month int
	Day   int
}

// Text is a free-form date string.
type Text string

func (Serial) isRaw()     {}
func (Structured) isRaw() {}
func (Text) isRaw()       {}

// serialEpochOffset is the serial number of 1970-01-01.
const serialEpochOffset = 25569

// maxSerialDays bounds serials to years 1..9999 before any int conversion.
const maxSerialDays = 3_000_000

var (
	dateCtorPattern = regexp.MustCompile(`Date\((\d+),\s*(\d+),\s*(\d+)`)
	fieldSeparators = regexp.MustCompile(`[-/]`)
)

// FromCell wraps a decoded cell value. A nil cell yields a nil Raw.
func FromCell(v any) Raw {
	switch x := v.(type) {
	case nil:
		return nil
	case Raw:
		return x
	case float64:
		return Serial(x)
	case float32:
		return Serial(x)
	case int:
		return Serial(x)
	case int64:
		return Serial(x)
	case string:
		return Text(x)
	case time.Time:
		return Structured(FromTime(x))
	default:
		return Text(fmt.Sprint(x))
	}
}

// Normalize converts a raw cell to a Date. Anything it cannot read, including
// a nil or empty cell and impossible days such as Feb 30, yields false and a
// warning in the log. It never fails harder than that.
func Normalize(in Raw) (Date, bool) {
	d, ok := normalize(in)
	if !ok || !d.Valid() {
		appLog.Warn("invalid date parsed", "input", describe(in))
		return Date{}, false
	}
	return d, true
}

func normalize(in Raw) (Date, bool) {
	switch v := in.(type) {
	case Serial:
		return fromSerial(float64(v))
	case Structured:
		return Date(v), true
	case Text:
		return fromText(string(v))
	default:
		return Date{}, false
	}
}

// fromSerial keeps only whole days; the time-of-day fraction is dropped.
func fromSerial(v float64) (Date, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Date{}, false
	}
	days := math.Floor(v) - serialEpochOffset
	if math.Abs(days) > maxSerialDays {
		return Date{}, false
	}
	t := time.Unix(0, 0).UTC().AddDate(0, 0, int(days))
	return FromTime(t), true
}

func fromText(s string) (Date, bool) {
	if strings.TrimSpace(s) == "" {
		return Date{}, false
	}

	// Date(2025,5,1): month is already 0-based.
	if m := dateCtorPattern.FindStringSubmatch(s); m != nil {
		y, err1 := strconv.Atoi(m[1])
		mo, err2 := strconv.Atoi(m[2])
		d, err3 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return Date{}, false
		}
		return Date{Year: y, Month: mo, Day: d}, true
	}

	// dd/mm/yyyy or dd-mm-yyyy.
	parts := fieldSeparators.Split(s, -1)
	if len(parts) != 3 {
		return Date{}, false
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, false
		}
		n[i] = v
	}
	return Date{Year: n[2], Month: n[1] - 1, Day: n[0]}, true
}

func describe(in Raw) string {
	if in == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", in)
}
