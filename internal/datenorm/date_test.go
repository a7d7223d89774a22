package datenorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	d, ok := Normalize(Text("Date(2025,5,1)"))
	require.True(t, ok)
	assert.Equal(t, "1 Juni 2025", Format(d))
	assert.Equal(t, "17 Agustus 1945", Date{1945, 7, 17}.String())
	assert.Equal(t, "31 Desember 2024", Format(Date{2024, 11, 31}))
}

func TestFormatInvalid(t *testing.T) {
	assert.Equal(t, InvalidText, Format(Date{}))
	assert.Equal(t, InvalidText, Format(Date{2025, 12, 1}))
	assert.Equal(t, InvalidText, Format(Date{2025, 1, 30}))
}

func TestSameDay(t *testing.T) {
	a := Date{2025, 5, 1}
	b := FromTime(time.Date(2025, time.June, 1, 18, 45, 0, 0, time.UTC))

	assert.True(t, SameDay(a, a))
	assert.True(t, SameDay(a, b))
	assert.True(t, SameDay(b, a))
	assert.False(t, SameDay(a, a.AddDays(1)))
	assert.False(t, SameDay(Date{}, a))
	assert.False(t, SameDay(a, Date{}))
	assert.False(t, SameDay(Date{}, Date{}))
}

func TestAddDaysAndCompare(t *testing.T) {
	d := Date{2024, 1, 28}
	assert.Equal(t, Date{2024, 1, 29}, d.AddDays(1))
	assert.Equal(t, Date{2024, 2, 1}, d.AddDays(2))
	assert.Equal(t, Date{2023, 11, 31}, Date{2024, 0, 1}.AddDays(-1))

	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.Equal(t, 0, d.Compare(d))
	assert.Equal(t, 1, Date{2025, 0, 1}.Compare(Date{2024, 11, 31}))
}

func TestParseAndISO(t *testing.T) {
	d, err := Parse("2025-08-17")
	require.NoError(t, err)
	assert.Equal(t, Date{2025, 7, 17}, d)
	assert.Equal(t, "2025-08-17", d.ISO())

	_, err = Parse("17/08/2025")
	assert.Error(t, err)
}

func TestTimeIsMidnight(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	got := Date{2025, 5, 1}.Time(loc)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, loc), got)
	assert.Equal(t, Date{2025, 5, 1}, FromTime(got))
}
