// Command validate checks an enriched catalog written by the ETL: output
// structure, match quality bounds, time-series shape, and, when the input
// catalog is given, that every output row still carries its source fields.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -output helcats_list_flarecast.json \
//	  -catalog helcats_list.json \
//	  -series-length 25 -tolerance 15
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// options are the validation inputs.
type options struct {
	outputPath   string
	catalogPath  string
	seriesLength int
	tolerance    float64
}

func main() {
	var opts options
	flag.StringVar(&opts.outputPath, "output", "", "path to the enriched catalog")
	flag.StringVar(&opts.catalogPath, "catalog", "", "optional path to the input HELCATS catalog")
	flag.IntVar(&opts.seriesLength, "series-length", domain.DefaultSeriesLength, "expected samples per time series")
	flag.Float64Var(&opts.tolerance, "tolerance", domain.DefaultTolerance, "positional match tolerance in degrees")
	flag.Parse()

	if opts.outputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, opts); code != 0 {
		os.Exit(code)
	}
}

// row is one output catalog object, fields kept raw.
type row map[string]json.RawMessage

func run(w io.Writer, opts options) int {
	fmt.Fprintln(w, "=== Enriched Catalog Validation ===")
	fmt.Fprintln(w)

	rows, err := loadJSON[row](opts.outputPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load output: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(rows),
		validateMatchQuality(rows, opts.tolerance),
		validateSeriesShape(rows, opts.seriesLength),
	}
	if opts.catalogPath != "" {
		source, err := loadJSON[map[string]json.RawMessage](opts.catalogPath)
		if err != nil {
			fmt.Fprintf(w, "FATAL: load catalog: %v\n", err)
			return 1
		}
		phases = append(phases, validateCatalogParity(rows, source))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d output, %d matched\n", len(rows), countMatched(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func countMatched(rows []row) int {
	n := 0
	for _, r := range rows {
		if _, ok := r[domain.KeyFlarecastMatch]; ok {
			n++
		}
	}
	return n
}

// match is the FC_match object.
type match struct {
	Method  string  `json:"method"`
	Quality float64 `json:"quality"`
	HARP    int     `json:"harp"`
}

func (r row) match() (match, bool, error) {
	raw, ok := r[domain.KeyFlarecastMatch]
	if !ok {
		return match{}, false, nil
	}
	var m match
	if err := json.Unmarshal(raw, &m); err != nil {
		return match{}, true, err
	}
	return m, true, nil
}

func (r row) id(i int) string {
	var id string
	if err := json.Unmarshal(r[domain.KeyEventID], &id); err != nil || id == "" {
		return fmt.Sprintf("row %d", i)
	}
	return id
}

// ── Phase 1: structure ──

func validateStructure(rows []row) *phase {
	p := &phase{name: "Phase 1: Output Structure"}
	seen := make(map[string]bool, len(rows))

	for i, r := range rows {
		var id string
		if err := json.Unmarshal(r[domain.KeyEventID], &id); err != nil || id == "" {
			p.errorf("row %d: missing %s", i, domain.KeyEventID)
		} else if seen[id] {
			p.errorf("%s: duplicate %s", id, domain.KeyEventID)
		} else {
			seen[id] = true
		}

		var processed time.Time
		if err := json.Unmarshal(r[domain.KeyProcessedAt], &processed); err != nil || processed.IsZero() {
			p.errorf("%s: missing or invalid %s", r.id(i), domain.KeyProcessedAt)
		}

		_, hasData := r[domain.KeyFlarecastData]
		_, hasMatch := r[domain.KeyFlarecastMatch]
		if hasData != hasMatch {
			p.errorf("%s: %s and %s must appear together", r.id(i), domain.KeyFlarecastData, domain.KeyFlarecastMatch)
		}
	}
	return p
}

// ── Phase 2: match quality ──

func validateMatchQuality(rows []row, tolerance float64) *phase {
	p := &phase{name: "Phase 2: Match Quality"}

	for i, r := range rows {
		m, ok, err := r.match()
		if !ok {
			continue
		}
		if err != nil {
			p.errorf("%s: decode %s: %v", r.id(i), domain.KeyFlarecastMatch, err)
			continue
		}
		switch domain.MatchMethod(m.Method) {
		case domain.MatchByNumber:
			if m.Quality != 0 {
				p.errorf("%s: number match with quality %g", r.id(i), m.Quality)
			}
		case domain.MatchByPosition:
			if m.Quality < 0 || m.Quality >= tolerance {
				p.errorf("%s: positional quality %g outside [0, %g)", r.id(i), m.Quality, tolerance)
			}
		default:
			p.errorf("%s: unknown match method %q", r.id(i), m.Method)
		}

		// Match mode writes the property map with the quality folded in.
		var data map[string]json.RawMessage
		if err := json.Unmarshal(r[domain.KeyFlarecastData], &data); err != nil {
			p.errorf("%s: %s is not an object", r.id(i), domain.KeyFlarecastData)
			continue
		}
		if _, isSeries := data["hours_before"]; isSeries {
			continue
		}
		var q float64
		if err := json.Unmarshal(data[domain.KeyMatchQuality], &q); err != nil {
			p.errorf("%s: missing %s", r.id(i), domain.KeyMatchQuality)
		} else if q != m.Quality {
			p.errorf("%s: %s %g differs from match quality %g", r.id(i), domain.KeyMatchQuality, q, m.Quality)
		}
	}
	return p
}

// ── Phase 3: time-series shape ──

var seriesMetaKeys = map[string]bool{"harp": true, "reference_time": true, "hours_before": true}

func validateSeriesShape(rows []row, length int) *phase {
	p := &phase{name: "Phase 3: Time Series Shape"}

	for i, r := range rows {
		m, ok, err := r.match()
		if !ok || err != nil {
			continue
		}
		var data map[string]json.RawMessage
		if err := json.Unmarshal(r[domain.KeyFlarecastData], &data); err != nil {
			continue
		}
		rawHours, isSeries := data["hours_before"]
		if !isSeries {
			continue
		}

		var hours []int
		if err := json.Unmarshal(rawHours, &hours); err != nil {
			p.errorf("%s: hours_before: %v", r.id(i), err)
			continue
		}
		if len(hours) != length {
			p.errorf("%s: hours_before has %d entries, want %d", r.id(i), len(hours), length)
		}
		for j, h := range hours {
			if h != len(hours)-1-j {
				p.errorf("%s: hours_before[%d] = %d, want oldest first ending at 0", r.id(i), j, h)
				break
			}
		}

		var harp int
		if err := json.Unmarshal(data["harp"], &harp); err != nil || harp != m.HARP {
			p.errorf("%s: series harp %d differs from matched harp %d", r.id(i), harp, m.HARP)
		}

		for key, raw := range data {
			if seriesMetaKeys[key] {
				continue
			}
			var cells []json.RawMessage
			if err := json.Unmarshal(raw, &cells); err != nil {
				p.errorf("%s: series %q is not an array", r.id(i), key)
				continue
			}
			if len(cells) != length {
				p.errorf("%s: series %q has %d samples, want %d", r.id(i), key, len(cells), length)
			}
		}
	}
	return p
}

// ── Phase 4: catalog parity ──

func validateCatalogParity(rows []row, source []map[string]json.RawMessage) *phase {
	p := &phase{name: "Phase 4: Catalog Parity"}

	byID := make(map[string]map[string]json.RawMessage, len(source))
	for _, raw := range source {
		ev, err := domain.ParseCatalogEntry(raw)
		if err != nil {
			continue
		}
		byID[ev.ID] = raw
	}

	for i, r := range rows {
		id := r.id(i)
		src, ok := byID[id]
		if !ok {
			p.errorf("%s: not found in input catalog", id)
			continue
		}
		for key, want := range src {
			got, ok := r[key]
			if !ok {
				p.errorf("%s: source field %s dropped", id, key)
				continue
			}
			if !jsonEqual(want, got) {
				p.errorf("%s: source field %s changed: %s -> %s", id, key, want, got)
			}
		}
	}
	return p
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
