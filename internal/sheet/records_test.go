package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolboard/internal/datenorm"
	"schoolboard/internal/model"
)

func TestMapAgenda(t *testing.T) {
	tbl, err := DecodeTable([]byte(agendaPayload))
	require.NoError(t, err)

	items, err := MapAgenda("Agenda", tbl)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, datenorm.Date{Year: 2025, Month: 5, Day: 1}, items[0].Date)
	assert.Equal(t, "1 Juni 2025", items[0].DisplayDate())
	assert.Equal(t, "Matematika", items[0].Subject)

	assert.False(t, items[1].Date.Valid())
	assert.Equal(t, "besok", items[1].DisplayDate())
}

func TestMapStudents(t *testing.T) {
	tbl := Table{
		Columns: []string{ColNIS, ColName, ColRole, ColDuty},
		Rows: []Row{
			{ColNIS: 1021.0, ColName: "Ayu", ColRole: "Sekretaris", ColDuty: "Senin"},
			{ColNIS: nil, ColName: "  ", ColRole: nil, ColDuty: nil},
			{ColNIS: "1022", ColName: "Budi", ColRole: nil, ColDuty: "Rabu"},
		},
	}
	got, err := MapStudents("Siswa", tbl)
	require.NoError(t, err)
	assert.Equal(t, []model.Student{
		{NIS: "1021", Name: "Ayu", Role: "Sekretaris", Duty: "Senin"},
		{NIS: "1022", Name: "Budi", Duty: "Rabu"},
	}, got)
}

func TestMapSchemaError(t *testing.T) {
	tbl := Table{Columns: []string{ColName, "Kelas"}}

	_, err := MapStudents("Siswa", tbl)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Siswa", se.Sheet)
	assert.Equal(t, []string{ColNIS, ColRole, ColDuty}, se.Missing)
	assert.Contains(t, err.Error(), `sheet "Siswa": missing columns NIS, Role, Piket`)

	_, err = MapTimetable("Jadwal", Table{Columns: []string{ColHour, "Senin"}})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"Selasa", "Rabu", "Kamis", "Jumat"}, se.Missing)
}

func TestMapSubjectsAndTimetable(t *testing.T) {
	subjects, err := MapSubjects("Pelajaran", Table{
		Columns: []string{ColSubject},
		Rows:    []Row{{ColSubject: "Matematika"}, {ColSubject: ""}, {ColSubject: "IPA"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Subject{{Name: "Matematika"}, {Name: "IPA"}}, subjects)

	rows, err := MapTimetable("Jadwal", Table{
		Columns: []string{ColHour, "Senin", "Selasa", "Rabu", "Kamis", "Jumat"},
		Rows: []Row{
			{ColHour: "07.00-07.40", "Senin": "Upacara", "Selasa": "IPA", "Rabu": "IPS", "Kamis": "PJOK", "Jumat": "Senam"},
			{ColHour: nil, "Senin": "orphan"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, [5]string{"Upacara", "IPA", "IPS", "PJOK", "Senam"}, rows[0].Days)
}
