package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrPathNotFound is returned when a property path does not resolve.
	ErrPathNotFound = errors.New("property path not found")

	// ErrNotNumeric is returned when a property path resolves to a non-number.
	ErrNotNumeric = errors.New("property is not numeric")
)

// PropertyRecord is one FLARECAST row: a region at a time sample.
type PropertyRecord struct {
	Time          time.Time
	RegionNumbers []int // NOAA numbers; more than one when regions merged
	HARP          int   // rotation-tracked SHARP region number
	Lat           float64
	Lon           float64
	Data          map[string]any
}

// PropertyPath names a scalar inside a record's nested property data.
type PropertyPath struct {
	Name string
	Path []string
}

// NewPropertyPath builds a path from a dotted key, e.g. "sharp_kw.usiz.total".
func NewPropertyPath(name, dotted string) PropertyPath {
	return PropertyPath{Name: name, Path: strings.Split(dotted, ".")}
}

func (p PropertyPath) String() string {
	return strings.Join(p.Path, ".")
}

// Extract resolves the path in data and returns the value as float64.
func (p PropertyPath) Extract(data map[string]any) (float64, error) {
	if len(p.Path) == 0 {
		return 0, fmt.Errorf("%w: %s: empty path", ErrPathNotFound, p.Name)
	}

	var cur any = data
	for _, key := range p.Path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("%w: %s: %q is not an object", ErrPathNotFound, p, key)
		}
		cur, ok = m[key]
		if !ok {
			return 0, fmt.Errorf("%w: %s: missing %q", ErrPathNotFound, p, key)
		}
	}

	v, ok := toFloat(cur)
	if !ok || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s: %T", ErrNotNumeric, p, cur)
	}
	return v, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DefaultSeriesProperties are the FLARECAST predictors tracked in time-series
// mode.
var DefaultSeriesProperties = []PropertyPath{
	NewPropertyPath("r_values_br", "r_value_br_logr"),
	NewPropertyPath("alpha_fft_br", "alpha_exp_fft_br.alpha"),
	NewPropertyPath("usiz_tot", "sharp_kw.usiz.total"),
	NewPropertyPath("di4_br", "decay_index_br.max_l_over_hmin"),
	NewPropertyPath("wlsg_br", "wlsg_br.value_int"),
	NewPropertyPath("usflux_total", "sharp_kw.usflux.total"),
	NewPropertyPath("ushz_ave", "sharp_kw.ushz.ave"),
	NewPropertyPath("hgrad_bh_max", "sharp_kw.hgradbh.max"),
	NewPropertyPath("ushz_tot", "sharp_kw.ushz.total"),
	NewPropertyPath("ising_energy_blos", "ising_energy_blos.ising_energy"),
	NewPropertyPath("usiz_max", "sharp_kw.usiz.max"),
	NewPropertyPath("hz_max", "sharp_kw.hz.max"),
	NewPropertyPath("jz_max", "sharp_kw.jz.max"),
	NewPropertyPath("helicity_tot_dhdt", "helicity_energy_bvec.abs_tot_dhdt"),
	NewPropertyPath("helicity_tot_dedt", "helicity_energy_bvec.abs_tot_dedt"),
}

// RangeQuery asks the property service for every record in [Start, End).
type RangeQuery struct {
	Start     time.Time
	End       time.Time
	SliceSize time.Duration
	Params    map[string]string
}

// FetchResult holds the records of every slice that succeeded.
type FetchResult struct {
	Records []PropertyRecord
	Slices  int
	Failed  int
}

// Complete reports whether no slice was skipped.
func (r FetchResult) Complete() bool {
	return r.Failed == 0
}

// PropertyFetcher retrieves region property records for a time range. A failed
// slice shrinks the result; it never fails the call.
type PropertyFetcher interface {
	FetchRange(ctx context.Context, q RangeQuery) FetchResult
}
