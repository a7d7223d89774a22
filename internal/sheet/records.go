package sheet

import (
	"fmt"
	"strings"

	"schoolboard/internal/datenorm"
	"schoolboard/internal/model"
)

// Column labels used by the class spreadsheet.
const (
	ColNIS           = "NIS"
	ColName          = "Nama"
	ColRole          = "Role"
	ColDuty          = "Piket"
	ColSubject       = "Pelajaran"
	ColDate          = "Tanggal"
	ColAgendaSubject = "MataPelajaran"
	ColNote          = "Keterangan"
	ColHour          = "Jam"
)

// SchemaError reports that a sheet no longer has the columns the board
// depends on.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sheet %q: missing columns %s", e.Sheet, strings.Join(e.Missing, ", "))
}

func requireColumns(sheetName string, t Table, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Sheet: sheetName, Missing: missing}
	}
	return nil
}

// MapStudents maps the roster. Rows without a name are skipped.
func MapStudents(sheetName string, t Table) ([]model.Student, error) {
	if err := requireColumns(sheetName, t, ColNIS, ColName, ColRole, ColDuty); err != nil {
		return nil, err
	}
	out := make([]model.Student, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Blank(ColName) {
			continue
		}
		out = append(out, model.Student{
			NIS:  r.Text(ColNIS),
			Name: r.Text(ColName),
			Role: r.Text(ColRole),
			Duty: r.Text(ColDuty),
		})
	}
	return out, nil
}

// MapSubjects maps the subject list. Blank rows are skipped.
func MapSubjects(sheetName string, t Table) ([]model.Subject, error) {
	if err := requireColumns(sheetName, t, ColSubject); err != nil {
		return nil, err
	}
	out := make([]model.Subject, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Blank(ColSubject) {
			continue
		}
		out = append(out, model.Subject{Name: r.Text(ColSubject)})
	}
	return out, nil
}

// MapAgenda maps the agenda. Rows with a blank date cell are skipped; rows
// whose date cannot be read are kept with an invalid Date.
func MapAgenda(sheetName string, t Table) ([]model.AgendaItem, error) {
	if err := requireColumns(sheetName, t, ColDate, ColAgendaSubject, ColNote); err != nil {
		return nil, err
	}
	out := make([]model.AgendaItem, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Blank(ColDate) {
			continue
		}
		d, _ := datenorm.Normalize(datenorm.FromCell(r[ColDate]))
		out = append(out, model.AgendaItem{
			Date:    d,
			RawDate: r.Text(ColDate),
			Subject: r.Text(ColAgendaSubject),
			Note:    r.Text(ColNote),
		})
	}
	return out, nil
}

// MapTimetable maps the weekly timetable. Rows without a period are
// skipped.
func MapTimetable(sheetName string, t Table) ([]model.TimetableRow, error) {
	cols := append([]string{ColHour}, model.Weekdays[:]...)
	if err := requireColumns(sheetName, t, cols...); err != nil {
		return nil, err
	}
	out := make([]model.TimetableRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Blank(ColHour) {
			continue
		}
		row := model.TimetableRow{Hour: r.Text(ColHour)}
		for i, day := range model.Weekdays {
			row.Days[i] = r.Text(day)
		}
		out = append(out, row)
	}
	return out, nil
}
