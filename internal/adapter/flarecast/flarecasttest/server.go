// Package flarecasttest serves a FLARECAST-compatible region list API from
// fixture rows, for tests and local runs.
package flarecasttest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

// Region keeps the wire form of a region row so responses echo the
// fixture exactly.
type Region struct {
	start time.Time
	raw   map[string]json.RawMessage
}

// LoadFixture reads a {"data":[...]} region list file.
func LoadFixture(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var doc struct {
		Data []map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}

	regions := make([]Region, 0, len(doc.Data))
	for i, raw := range doc.Data {
		var ts string
		if err := json.Unmarshal(raw["time_start"], &ts); err != nil {
			return nil, fmt.Errorf("fixture row %d: time_start: %w", i, err)
		}
		start, err := domain.ParseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("fixture row %d: %w", i, err)
		}
		regions = append(regions, Region{start: start, raw: raw})
	}
	return regions, nil
}

// NewHandler serves GET /region/{dataset}/list, filtering by the
// time_start=between(a,b) range. An empty property_type strips the property
// data, as the real service does.
func NewHandler(dataset string, regions []Region, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /region/{dataset}/list", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("dataset") != dataset {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown dataset " + r.PathValue("dataset")})
			return
		}

		q := r.URL.Query()
		from, to, err := parseBetween(q.Get("time_start"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		metadataOnly := q.Has("property_type") && q.Get("property_type") == ""

		out := make([]map[string]json.RawMessage, 0)
		for _, reg := range regions {
			if reg.start.Before(from) || !reg.start.Before(to) {
				continue
			}
			row := reg.raw
			if metadataOnly {
				row = withoutData(row)
			}
			out = append(out, row)
		}

		logger.Debug("region list", "from", from, "to", to, "rows", len(out))
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	})
	return mux
}

// parseBetween reads "between(a,b)".
func parseBetween(s string) (time.Time, time.Time, error) {
	inner, ok := strings.CutPrefix(s, "between(")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("time_start must be between(a,b), got %q", s)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("time_start must be between(a,b), got %q", s)
	}
	a, b, ok := strings.Cut(inner, ",")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("time_start needs two bounds, got %q", s)
	}
	from, err := domain.ParseTimestamp(a)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := domain.ParseTimestamp(b)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func withoutData(row map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(row))
	for k, v := range row {
		out[k] = v
	}
	out["data"] = json.RawMessage(`{}`)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort mock response
}
