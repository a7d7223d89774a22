package web

import (
	"net/http"
	"time"

	"schoolboard/internal/board"
	"schoolboard/internal/datenorm"
	appLog "schoolboard/internal/log"
	"schoolboard/internal/model"
	"schoolboard/internal/schedule"
)

// statusUnavailable is shown when the banner cannot be computed.
const statusUnavailable = "Status sekolah tidak tersedia."

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type statusResponse struct {
	Kind      schedule.Kind `json:"kind"`
	HoursLeft float64       `json:"hours_left,omitempty"`
	Message   string        `json:"message"`
	Date      string        `json:"date,omitempty"`
	At        time.Time     `json:"at"`
}

// handleStatus returns the school banner. A failed holiday lookup is a 503,
// never a guess.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		writeError(w, http.StatusServiceUnavailable, statusUnavailable)
		return
	}
	rep, err := s.deps.Status.Current(r.Context())
	if err != nil {
		appLog.Error("api status: evaluation failed", err)
		writeError(w, http.StatusServiceUnavailable, statusUnavailable)
		return
	}
	resp := statusResponse{
		Kind:      rep.Status.Kind,
		HoursLeft: rep.Status.HoursLeft,
		Message:   rep.Message,
		At:        rep.At,
	}
	if rep.Date.Valid() {
		resp.Date = rep.Date.ISO()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Board.Get().Home(s.today()))
}

type studentsResponse struct {
	Students []model.Student `json:"students"`
	Total    int             `json:"total"`
}

// handleStudents lists the roster.
//
// GET /api/students?q=ayu&duty=senin
func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	b := s.deps.Board.Get()
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, studentsResponse{
		Students: b.FindStudents(q.Get("q"), q.Get("duty")),
		Total:    len(b.Students),
	})
}

type agendaResponse struct {
	Agenda []board.AgendaRow `json:"agenda"`
	Date   string            `json:"date,omitempty"`
}

// handleAgenda lists agenda entries, newest first.
//
// GET /api/agenda?date=2025-06-01
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	var filter *datenorm.Date
	raw := r.URL.Query().Get("date")
	if raw != "" {
		d, err := datenorm.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter = &d
	}
	writeJSON(w, http.StatusOK, agendaResponse{
		Agenda: s.deps.Board.Get().AgendaTable(filter),
		Date:   raw,
	})
}

type timetableResponse struct {
	Days []string             `json:"days"`
	Rows []model.TimetableRow `json:"rows"`
}

func (s *Server) handleTimetable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, timetableResponse{
		Days: model.Weekdays[:],
		Rows: s.deps.Board.Get().TimetableRows(),
	})
}

type refreshResponse struct {
	Students  int       `json:"students"`
	Subjects  int       `json:"subjects"`
	Agenda    int       `json:"agenda"`
	Timetable int       `json:"timetable"`
	Errors    []string  `json:"errors,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// handleRefresh reloads the spreadsheet.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	if s.deps.Loader == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}

	errs := s.deps.Board.Refresh(r.Context(), s.deps.Loader)
	if s.deps.OnRefresh != nil {
		s.deps.OnRefresh(r.Context())
	}

	b := s.deps.Board.Get()
	resp := refreshResponse{
		Students:  len(b.Students),
		Subjects:  len(b.Subjects),
		Agenda:    len(b.Agenda),
		Timetable: len(b.Timetable),
		LoadedAt:  b.LoadedAt,
	}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreview serves the last board snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil || s.cfg.Snapshot.Output == "" {
		http.NotFound(w, r)
		return
	}
	// http.ServeFile maps missing files to 404.
	http.ServeFile(w, r, s.cfg.Snapshot.Output)
}
