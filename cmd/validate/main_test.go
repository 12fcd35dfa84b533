package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

var reference = time.Date(2013, 5, 13, 1, 0, 0, 0, time.UTC)

func sourceRow(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func parse(t *testing.T, raw map[string]json.RawMessage) domain.Event {
	t.Helper()
	ev, err := domain.ParseCatalogEntry(raw)
	require.NoError(t, err)
	ev.ProcessedAt = reference.Add(time.Hour)
	return ev
}

// fixture returns a source catalog and its enriched output: one series match,
// one positional match with properties, and one unmatched row.
func fixture(t *testing.T, seriesLength int, positionalQuality float64) ([]map[string]json.RawMessage, []domain.Event) {
	t.Helper()
	source := []map[string]json.RawMessage{
		sourceRow(t, map[string]any{"FL_TYPE": "swpc", "FL_STARTTIME": "2013-05-13T01:53:00", "SRS_NO": 1748, "FL_LOC": "N11E89"}),
		sourceRow(t, map[string]any{"FL_TYPE": "hessi", "FL_STARTTIME": "2013-05-13T03:00:00", "FL_LOC": "N12E38"}),
		sourceRow(t, map[string]any{"FL_TYPE": "swpc", "FL_STARTTIME": "2013-05-14T10:00:00", "FL_LOC": "S20W30"}),
	}

	series := parse(t, source[0])
	ts := domain.NewAssembler(seriesLength, nil).Assemble(2748, reference, nil)
	series.Match = &domain.MatchedProperties{Method: domain.MatchByNumber, HARP: 2748, Time: reference}
	series.Series = &ts

	positional := parse(t, source[1])
	positional.Match = &domain.MatchedProperties{
		Method:     domain.MatchByPosition,
		Quality:    positionalQuality,
		HARP:       2750,
		Time:       reference,
		Properties: map[string]any{"sharp_kw": map[string]any{"usflux": 1.5}},
	}

	return source, []domain.Event{series, positional, parse(t, source[2])}
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func decodeRows(t *testing.T, events []domain.Event) []row {
	t.Helper()
	data, err := json.Marshal(events)
	require.NoError(t, err)
	var rows []row
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

func TestRun_ValidOutputPasses(t *testing.T) {
	source, events := fixture(t, domain.DefaultSeriesLength, 3.2)
	dir := t.TempDir()

	code := run(io.Discard, options{
		outputPath:   writeJSON(t, dir, "out.json", events),
		catalogPath:  writeJSON(t, dir, "in.json", source),
		seriesLength: domain.DefaultSeriesLength,
		tolerance:    domain.DefaultTolerance,
	})
	assert.Equal(t, 0, code)
}

func TestRun_MissingOutputFails(t *testing.T) {
	code := run(io.Discard, options{outputPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Equal(t, 1, code)
}

func TestValidateMatchQuality_OutsideTolerance(t *testing.T) {
	_, events := fixture(t, domain.DefaultSeriesLength, 20)

	p := validateMatchQuality(decodeRows(t, events), domain.DefaultTolerance)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "outside [0, 15)")
}

func TestValidateSeriesShape_WrongLength(t *testing.T) {
	_, events := fixture(t, 13, 3.2)

	p := validateSeriesShape(decodeRows(t, events), domain.DefaultSeriesLength)
	require.False(t, p.passed())
	assert.Contains(t, p.errors[0], "want 25")
}

func TestValidateStructure_DuplicateAndMissingIDs(t *testing.T) {
	_, events := fixture(t, domain.DefaultSeriesLength, 3.2)
	rows := decodeRows(t, events)
	rows = append(rows, rows[0])
	delete(rows[2], domain.KeyEventID)

	p := validateStructure(rows)
	assert.Len(t, p.errors, 2)
}

func TestValidateCatalogParity_ChangedField(t *testing.T) {
	source, events := fixture(t, domain.DefaultSeriesLength, 3.2)
	rows := decodeRows(t, events)
	rows[2]["FL_LOC"] = json.RawMessage(`"S21W30"`)

	p := validateCatalogParity(rows, source)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "FL_LOC changed")
}
