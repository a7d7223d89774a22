package model

import "schoolboard/internal/datenorm"

// Student is one row of the student roster sheet.
type Student struct {
	NIS  string `json:"nis"`
	Name string `json:"name"`
	// Role is a class office such as "Ketua Kelas"; empty for most students.
	Role string `json:"role"`
	// Duty is the cleaning-duty (piket) day.
	Duty string `json:"duty"`
}

// Subject is one row of the subject list.
type Subject struct {
	Name string `json:"name"`
}

// AgendaItem is a dated class agenda entry (homework, test, event).
type AgendaItem struct {
	// Date is invalid when the sheet cell could not be normalized; RawDate
	// then carries the cell text for display.
	Date    datenorm.Date `json:"-"`
	RawDate string        `json:"raw_date"`
	Subject string        `json:"subject"`
	Note    string        `json:"note"`
}

// DisplayDate renders the date as "1 Juni 2025", falling back to the raw
// cell text when the date could not be read.
func (a AgendaItem) DisplayDate() string {
	if a.Date.Valid() {
		return datenorm.Format(a.Date)
	}
	return a.RawDate
}

// Weekdays are the timetable columns, Monday through Friday.
var Weekdays = [5]string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat"}

// TimetableRow is one lesson period across the school week. Days is
// indexed like Weekdays.
type TimetableRow struct {
	Hour string    `json:"hour"`
	Days [5]string `json:"days"`
}
