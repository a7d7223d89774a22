package web

import (
	"embed"
	"html/template"
	"net/http"

	"schoolboard/internal/board"
	"schoolboard/internal/datenorm"
	appLog "schoolboard/internal/log"
	"schoolboard/internal/model"
	"schoolboard/internal/schedule"
)

//go:embed templates/*.html
var templateFS embed.FS

var boardTemplate = template.Must(template.ParseFS(templateFS, "templates/board.html"))

// boardPage is the data behind templates/board.html.
type boardPage struct {
	Status    string
	StatusOK  bool
	Home      board.HomeView
	Agenda    []board.AgendaRow
	Days      []string
	Timetable []model.TimetableRow
	LoadedAt  string
}

// handleBoard renders the single-page board. The status banner degrades to
// a notice when it cannot be computed; the rest of the page still renders.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	b := s.deps.Board.Get()

	page := boardPage{
		Status:    statusUnavailable,
		Home:      b.Home(s.today()),
		Agenda:    b.AgendaTable(nil),
		Days:      model.Weekdays[:],
		Timetable: b.TimetableRows(),
	}
	if !b.LoadedAt.IsZero() {
		at := schedule.ToSchoolTime(b.LoadedAt, s.deps.Offset)
		page.LoadedAt = datenorm.FromTime(at).String() + " " + at.Format("15:04")
	}
	if s.deps.Status != nil {
		if rep, err := s.deps.Status.Current(r.Context()); err != nil {
			appLog.Error("board: status unavailable", err)
		} else {
			page.Status = rep.Message
			page.StatusOK = true
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := boardTemplate.Execute(w, page); err != nil {
		appLog.Error("board: template execution failed", err)
	}
}
