package holiday

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"schoolboard/internal/fetch"
	appLog "schoolboard/internal/log"
)

// DefaultURL is the public Indonesian holiday calendar.
const DefaultURL = "https://raw.githubusercontent.com/guangrei/APIHariLibur_V2/main/holidays.json"

// Format names the document layout of a holiday source.
type Format string

const (
	FormatJSON Format = "json"
	FormatICS  Format = "ics"
)

// ParseFormat maps a config value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatICS:
		return FormatICS, nil
	default:
		return "", fmt.Errorf("holiday: unknown format %q", s)
	}
}

// Options configures a Source.
type Options struct {
	URL    string
	Format Format
	// TTL is how long a decoded calendar is reused before it is fetched
	// again. Zero means one hour.
	TTL time.Duration
	// Now is used for the ICS expansion window and the TTL. Defaults to
	// time.Now.
	Now func() time.Time
}

// Source is a holiday calendar backed by a remote document. It is safe for
// concurrent use.
type Source struct {
	fetcher *fetch.Fetcher
	src     fetch.Source
	format  Format
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	cal      Calendar
	loadedAt time.Time
}

// NewSource builds a Source that downloads through f.
func NewSource(f *fetch.Fetcher, opts Options) *Source {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Source{
		fetcher: f,
		src:     fetch.Source{ID: "holidays", URL: opts.URL},
		format:  opts.Format,
		ttl:     opts.TTL,
		now:     opts.Now,
	}
}

// IsHoliday reports whether date (YYYY-MM-DD) is in the calendar. A
// calendar that cannot be fetched or decoded is an error, never "no
// holiday".
func (s *Source) IsHoliday(ctx context.Context, date string) (bool, error) {
	cal, err := s.Calendar(ctx)
	if err != nil {
		return false, err
	}
	return cal.Contains(date), nil
}

// Calendar returns the decoded calendar, refreshing it when the TTL has
// passed.
func (s *Source) Calendar(ctx context.Context) (Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cal.days != nil && now.Sub(s.loadedAt) < s.ttl {
		return s.cal, nil
	}

	res, err := s.fetcher.Fetch(ctx, s.src)
	if err != nil {
		return Calendar{}, fmt.Errorf("holiday: fetch calendar: %w", err)
	}

	var cal Calendar
	switch s.format {
	case FormatICS:
		from := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(now.Year()+2, time.January, 1, 0, 0, 0, 0, time.UTC)
		cal, err = DecodeICS(res.Body, from, to)
	default:
		cal, err = DecodeJSON(res.Body)
	}
	if err != nil {
		return Calendar{}, err
	}

	appLog.Info("holiday calendar loaded", "format", string(s.format), "days", cal.Len(), "from_cache", res.FromCache)
	s.cal = cal
	s.loadedAt = now
	return cal, nil
}
