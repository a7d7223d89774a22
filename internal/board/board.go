// Package board holds the class data loaded from the spreadsheet and builds
// the views shown on the information board.
package board

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appLog "schoolboard/internal/log"
	"schoolboard/internal/model"
	"schoolboard/internal/sheet"
)

// TableSource fetches one sheet by name.
type TableSource interface {
	FetchTable(ctx context.Context, sheetName string) (sheet.Table, error)
}

// SheetNames maps each data set to the sheet (tab) holding it.
type SheetNames struct {
	Students  string
	Subjects  string
	Agenda    string
	Timetable string
}

// DefaultSheetNames are the tab names of the class spreadsheet.
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Students:  "Siswa",
		Subjects:  "Pelajaran",
		Agenda:    "Agenda",
		Timetable: "Jadwal",
	}
}

// Board is one immutable snapshot of the class data. A failed sheet leaves
// its slice empty.
type Board struct {
	Students  []model.Student
	Subjects  []model.Subject
	Agenda    []model.AgendaItem
	Timetable []model.TimetableRow

	LoadedAt time.Time
}

// Loader builds Boards from a TableSource.
type Loader struct {
	Source TableSource
	Sheets SheetNames
	Now    func() time.Time
}

// Load fetches the four sheets concurrently. Each failure is logged and
// returned, and the matching section stays empty; the Board is always
// usable.
func (l *Loader) Load(ctx context.Context) (*Board, []error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	b := &Board{}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(name string, err error) {
		appLog.Error("board: sheet load failed", err, "sheet", name)
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	load := func(name string, apply func(sheet.Table) error) {
		defer wg.Done()
		t, err := l.Source.FetchTable(ctx, name)
		if err != nil {
			record(name, err)
			return
		}
		if err := apply(t); err != nil {
			record(name, err)
		}
	}

	wg.Add(4)
	go load(l.Sheets.Students, func(t sheet.Table) (err error) {
		b.Students, err = sheet.MapStudents(l.Sheets.Students, t)
		return err
	})
	go load(l.Sheets.Subjects, func(t sheet.Table) (err error) {
		b.Subjects, err = sheet.MapSubjects(l.Sheets.Subjects, t)
		return err
	})
	go load(l.Sheets.Agenda, func(t sheet.Table) (err error) {
		b.Agenda, err = sheet.MapAgenda(l.Sheets.Agenda, t)
		return err
	})
	go load(l.Sheets.Timetable, func(t sheet.Table) (err error) {
		b.Timetable, err = sheet.MapTimetable(l.Sheets.Timetable, t)
		return err
	})
	wg.Wait()

	b.LoadedAt = now()
	appLog.Info("board loaded",
		"students", len(b.Students),
		"subjects", len(b.Subjects),
		"agenda", len(b.Agenda),
		"timetable", len(b.Timetable),
		"errors", len(errs),
	)
	return b, errs
}

// Holder publishes the current Board. Readers never see a partially
// loaded snapshot.
type Holder struct {
	p atomic.Pointer[Board]
}

// Get returns the current Board, or an empty one before the first load.
func (h *Holder) Get() *Board {
	if b := h.p.Load(); b != nil {
		return b
	}
	return &Board{}
}

// Set replaces the current Board.
func (h *Holder) Set(b *Board) {
	h.p.Store(b)
}

// Refresh loads a new Board with l and publishes it.
func (h *Holder) Refresh(ctx context.Context, l *Loader) []error {
	b, errs := l.Load(ctx)
	h.Set(b)
	return errs
}
