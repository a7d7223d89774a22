package board

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"schoolboard/internal/datenorm"
	"schoolboard/internal/model"
)

const (
	noAgendaToday    = "Tidak ada agenda untuk hari ini."
	noAgendaTomorrow = "Tidak ada agenda untuk besok."
)

// DayAgenda is the agenda list for a single day.
type DayAgenda struct {
	Date    string   `json:"date"`    // YYYY-MM-DD
	Heading string   `json:"heading"` // "1 Juni 2025"
	Items   []string `json:"items"`

	// Placeholder is set when Items is empty.
	Placeholder string `json:"placeholder,omitempty"`
}

// HomeView is the landing page summary.
type HomeView struct {
	StudentCount int       `json:"student_count"`
	SubjectCount int       `json:"subject_count"`
	Today        DayAgenda `json:"today"`
	Tomorrow     DayAgenda `json:"tomorrow"`

	// Roles lists class officers as "Role – Name", ordered by role.
	Roles []string `json:"roles"`
}

// AgendaRow is one agenda table row.
type AgendaRow struct {
	Date    string `json:"date,omitempty"` // YYYY-MM-DD, empty if unreadable
	Display string `json:"display"`
	Subject string `json:"subject"`
	Note    string `json:"note"`
}

// Home builds the landing summary for the given school-local day.
func (b *Board) Home(today datenorm.Date) HomeView {
	tomorrow := today.AddDays(1)
	v := HomeView{
		StudentCount: len(b.Students),
		SubjectCount: len(b.Subjects),
		Today:        b.dayAgenda(today, noAgendaToday),
		Tomorrow:     b.dayAgenda(tomorrow, noAgendaTomorrow),
		Roles:        []string{},
	}

	officers := make([]model.Student, 0)
	for _, s := range b.Students {
		if strings.TrimSpace(s.Role) != "" {
			officers = append(officers, s)
		}
	}
	coll := collate.New(language.Indonesian)
	sort.SliceStable(officers, func(i, j int) bool {
		return coll.CompareString(officers[i].Role, officers[j].Role) < 0
	})
	for _, s := range officers {
		v.Roles = append(v.Roles, s.Role+" – "+s.Name)
	}
	return v
}

func (b *Board) dayAgenda(day datenorm.Date, placeholder string) DayAgenda {
	d := DayAgenda{Date: day.ISO(), Heading: datenorm.Format(day), Items: []string{}}
	for _, a := range b.Agenda {
		if datenorm.SameDay(a.Date, day) {
			d.Items = append(d.Items, a.Subject+": "+a.Note)
		}
	}
	if len(d.Items) == 0 {
		d.Placeholder = placeholder
	}
	return d
}

// FindStudents filters the roster. query matches any column, duty matches the
// duty day or the role; both are case-insensitive and empty means "all".
func (b *Board) FindStudents(query, duty string) []model.Student {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	dt := fold.String(strings.TrimSpace(duty))

	out := make([]model.Student, 0, len(b.Students))
	for _, s := range b.Students {
		if q != "" {
			row := fold.String(strings.Join([]string{s.NIS, s.Name, s.Role, s.Duty}, " "))
			if !strings.Contains(row, q) {
				continue
			}
		}
		if dt != "" {
			if !strings.Contains(fold.String(s.Duty), dt) && !strings.Contains(fold.String(s.Role), dt) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// AgendaTable returns agenda rows newest first, optionally only those on day.
// Entries whose date could not be read sort last and never match a filter.
func (b *Board) AgendaTable(day *datenorm.Date) []AgendaRow {
	items := make([]model.AgendaItem, 0, len(b.Agenda))
	for _, a := range b.Agenda {
		if day != nil && !datenorm.SameDay(a.Date, *day) {
			continue
		}
		items = append(items, a)
	}

	sort.SliceStable(items, func(i, j int) bool {
		vi, vj := items[i].Date.Valid(), items[j].Date.Valid()
		if vi != vj {
			return vi
		}
		return items[j].Date.Before(items[i].Date)
	})

	out := make([]AgendaRow, 0, len(items))
	for _, a := range items {
		row := AgendaRow{Display: a.DisplayDate(), Subject: a.Subject, Note: a.Note}
		if a.Date.Valid() {
			row.Date = a.Date.ISO()
		}
		out = append(out, row)
	}
	return out
}

// TimetableRows returns the weekly timetable rows.
func (b *Board) TimetableRows() []model.TimetableRow {
	out := make([]model.TimetableRow, len(b.Timetable))
	copy(out, b.Timetable)
	return out
}
