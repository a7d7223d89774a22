package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"trace":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		" bogus ": LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestJSONOutputCarriesPairs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	Error("fetch failed", errors.New("boom"), "id", "agenda", "status", 502, "dangling")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "fetch failed", line["message"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "agenda", line["id"])
	assert.EqualValues(t, 502, line["status"])
	assert.NotContains(t, line, "dangling")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Writer: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	Debug("hidden")
	assert.Zero(t, buf.Len())

	SetLevel(LevelDebug)
	Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), `"shown"`)
}
