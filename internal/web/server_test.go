package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolboard/internal/board"
	"schoolboard/internal/config"
	"schoolboard/internal/schedule"
	"schoolboard/internal/sheet"
)

type fakeStatus struct {
	rep schedule.Report
	err error
}

func (f fakeStatus) Current(context.Context) (schedule.Report, error) {
	return f.rep, f.err
}

type tableSource map[string]sheet.Table

func (t tableSource) FetchTable(_ context.Context, name string) (sheet.Table, error) {
	tbl, ok := t[name]
	if !ok {
		return sheet.Table{}, errors.New("missing " + name)
	}
	return tbl, nil
}

func fixtureTables() tableSource {
	return tableSource{
		"Siswa": {
			Columns: []string{"NIS", "Nama", "Role", "Piket"},
			Rows: []sheet.Row{
				{"NIS": 1.0, "Nama": "Ayu", "Role": "Ketua Kelas", "Piket": "Senin"},
				{"NIS": 2.0, "Nama": "Budi", "Role": "", "Piket": "Selasa"},
			},
		},
		"Pelajaran": {Columns: []string{"Pelajaran"}, Rows: []sheet.Row{{"Pelajaran": "IPA"}}},
		"Agenda": {
			Columns: []string{"Tanggal", "MataPelajaran", "Keterangan"},
			Rows: []sheet.Row{
				{"Tanggal": "Date(2025,5,4)", "MataPelajaran": "IPA", "Keterangan": "Ulangan <bab 2>"},
				{"Tanggal": "5/6/2025", "MataPelajaran": "Matematika", "Keterangan": "PR"},
			},
		},
		"Jadwal": {
			Columns: []string{"Jam", "Senin", "Selasa", "Rabu", "Kamis", "Jumat"},
			Rows:    []sheet.Row{{"Jam": "07.00", "Senin": "Upacara", "Selasa": "IPA", "Rabu": "IPS", "Kamis": "PJOK", "Jumat": "Senam"}},
		},
	}
}

// Wednesday 2025-06-04 10:00 WIB.
var testNow = time.Date(2025, time.June, 4, 3, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg *config.Config, status StatusSource) (*Server, *board.Holder) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loader := &board.Loader{Source: fixtureTables(), Sheets: board.DefaultSheetNames(), Now: func() time.Time { return testNow }}
	holder := &board.Holder{}
	holder.Refresh(context.Background(), loader)

	s := NewServer(cfg, Deps{
		Board:  holder,
		Loader: loader,
		Status: status,
		Offset: schedule.DefaultOffset,
		Now:    func() time.Time { return testNow },
	})
	return s, holder
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusOK(t *testing.T) {
	st := schedule.Status{Kind: schedule.InSession, HoursLeft: 5}
	s, _ := newTestServer(t, nil, fakeStatus{rep: schedule.Report{
		Status:  st,
		Message: st.Message(),
		At:      schedule.ToSchoolTime(testNow, schedule.DefaultOffset),
	}})

	rec := get(t, s.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "in_session", body["kind"])
	assert.Equal(t, 5.0, body["hours_left"])
	assert.Equal(t, "⏰ Sekolah akan selesai dalam 5.0 jam lagi.", body["message"])
}

func TestStatusLookupFailureIs503(t *testing.T) {
	s, _ := newTestServer(t, nil, fakeStatus{err: schedule.ErrHolidayLookup})
	rec := get(t, s.Handler(), "/api/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), statusUnavailable)
}

func TestHome(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/home")
	require.Equal(t, http.StatusOK, rec.Code)

	var v board.HomeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 2, v.StudentCount)
	assert.Equal(t, "4 Juni 2025", v.Today.Heading)
	assert.Equal(t, []string{"IPA: Ulangan <bab 2>"}, v.Today.Items)
	assert.Equal(t, []string{"Matematika: PR"}, v.Tomorrow.Items)
	assert.Equal(t, []string{"Ketua Kelas – Ayu"}, v.Roles)
}

func TestStudents(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/students?duty=selasa")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp studentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Students, 1)
	assert.Equal(t, "Budi", resp.Students[0].Name)
	assert.Equal(t, 2, resp.Total)
}

func TestAgenda(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := get(t, s.Handler(), "/api/agenda")
	var resp agendaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agenda, 2)
	assert.Equal(t, "5 Juni 2025", resp.Agenda[0].Display)

	rec = get(t, s.Handler(), "/api/agenda?date=2025-06-04")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agenda, 1)
	assert.Equal(t, "IPA", resp.Agenda[0].Subject)

	rec = get(t, s.Handler(), "/api/agenda?date=04/06/2025")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimetable(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/timetable")

	var resp timetableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat"}, resp.Days)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Upacara", resp.Rows[0].Days[0])
}

func TestRefresh(t *testing.T) {
	s, holder := newTestServer(t, nil, nil)
	holder.Set(&board.Board{})

	rec := get(t, s.Handler(), "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	called := false
	s.deps.OnRefresh = func(context.Context) { called = true }

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Students)
	assert.Equal(t, 1, resp.Timetable)
	assert.Empty(t, resp.Errors)
	assert.True(t, called)
	assert.Len(t, holder.Get().Students, 2)
}

func TestBoardPage(t *testing.T) {
	st := schedule.Status{Kind: schedule.Holiday}
	s, _ := newTestServer(t, nil, fakeStatus{rep: schedule.Report{Status: st, Message: st.Message()}})

	rec := get(t, s.Handler(), "/board")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "🎉 Hari ini libur.")
	assert.Contains(t, body, "Ketua Kelas – Ayu")
	assert.Contains(t, body, "Ulangan &lt;bab 2&gt;")
	assert.Contains(t, body, "Diperbarui 4 Juni 2025 10:00")
}

func TestBoardPageDegradesWithoutStatus(t *testing.T) {
	s, _ := newTestServer(t, nil, fakeStatus{err: errors.New("holiday feed down")})
	rec := get(t, s.Handler(), "/board")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), statusUnavailable)
	assert.Contains(t, rec.Body.String(), "status--down")
}

func TestRootRedirectsAndUnknown404(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/board", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "guru", Password: "rahasia"}
	s, _ := newTestServer(t, cfg, nil)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	rec := get(t, h, "/api/home")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Basic"))

	req := httptest.NewRequest(http.MethodGet, "/api/home", nil)
	req.SetBasicAuth("guru", "rahasia")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreviewMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Snapshot.Output = t.TempDir() + "/none.png"
	s, _ := newTestServer(t, cfg, nil)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/preview.png").Code)
}
