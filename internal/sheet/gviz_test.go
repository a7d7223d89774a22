package sheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolboard/internal/fetch"
)

const agendaPayload = `/*O_o*/
google.visualization.Query.setResponse({"version":"0.6","reqId":"0","status":"ok","sig":"1","table":{"cols":[{"id":"A","label":"Tanggal","type":"date","pattern":"d/M/yyyy"},{"id":"B","label":"MataPelajaran","type":"string"},{"id":"C","label":"Keterangan","type":"string"},{"id":"D","label":"","type":"number"}],"rows":[{"c":[{"v":"Date(2025,5,1)","f":"1/6/2025"},{"v":"Matematika"},{"v":"PR halaman 12 (bab 3)"},{"v":3.0,"f":"3"}]},{"c":[null,{"v":"IPA"},{"v":null},null]},{"c":[{"v":"besok"},{"v":"Seni"},{"v":"Bawa cat air"}]}],"parsedNumHeaders":1}});`

func TestDecodeTable(t *testing.T) {
	tbl, err := DecodeTable([]byte(agendaPayload))
	require.NoError(t, err)

	assert.Equal(t, []string{"Tanggal", "MataPelajaran", "Keterangan", "col3"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)

	first := tbl.Rows[0]
	assert.Equal(t, "Date(2025,5,1)", first["Tanggal"])
	assert.Equal(t, "PR halaman 12 (bab 3)", first.Text("Keterangan"))
	assert.Equal(t, "3", first.Text("col3"))

	second := tbl.Rows[1]
	assert.Nil(t, second["Tanggal"])
	assert.True(t, second.Blank("Tanggal"))
	assert.True(t, second.Blank("Keterangan"))
	assert.Equal(t, "IPA", second.Text("MataPelajaran"))
}

func TestDecodeTableErrors(t *testing.T) {
	_, err := DecodeTable([]byte(`<!DOCTYPE html><html>sign in</html>`))
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = DecodeTable([]byte(`google.visualization.Query.setResponse({"status":"error","errors":[{"reason":"invalid_query","detailed_message":"Invalid sheet"}]});`))
	require.ErrorIs(t, err, ErrBadPayload)
	assert.Contains(t, err.Error(), "Invalid sheet")

	_, err = DecodeTable([]byte(`setResponse({"status":"ok"})`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestClientFetchTable(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("sheet")
		_, _ = w.Write([]byte(agendaPayload))
	}))
	defer srv.Close()

	c := NewClient(fetch.NewFetcher(t.TempDir()), "abc123").WithBaseURL(srv.URL + "/")
	tbl, err := c.FetchTable(context.Background(), "Agenda Kelas")
	require.NoError(t, err)

	assert.Equal(t, "/spreadsheets/d/abc123/gviz/tq", gotPath)
	assert.Equal(t, "Agenda Kelas", gotQuery)
	assert.Len(t, tbl.Rows, 3)
}

func TestClientRequiresSheetID(t *testing.T) {
	_, err := NewClient(fetch.NewFetcher(t.TempDir()), "").FetchTable(context.Background(), "Siswa")
	assert.Error(t, err)
}
