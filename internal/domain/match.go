package domain

import (
	"math"
	"slices"
	"time"
)

// DefaultTolerance is the maximum difference, in degrees, between the
// disk-center distances of an event and a FLARECAST region.
const DefaultTolerance = 15.0

// MatchMethod records which pass produced a match.
type MatchMethod string

const (
	MatchByNumber   MatchMethod = "number"
	MatchByPosition MatchMethod = "position"
)

// MatchedProperties is the FLARECAST region attached to an event.
type MatchedProperties struct {
	Method MatchMethod `json:"method"`
	// Quality is 0 for a number match, otherwise the distance difference in
	// degrees that let the positional pass accept the region.
	Quality    float64        `json:"quality"`
	HARP       int            `json:"harp"`
	Time       time.Time      `json:"time"`
	Lat        float64        `json:"lat_hg"`
	Lon        float64        `json:"long_hg"`
	Properties map[string]any `json:"-"`
}

// DataWithQuality returns a copy of the matched property data with the match
// quality added under fc_data_q.
func (m MatchedProperties) DataWithQuality() map[string]any {
	out := make(map[string]any, len(m.Properties)+1)
	for k, v := range m.Properties {
		out[k] = v
	}
	out[KeyMatchQuality] = m.Quality
	return out
}

// Target is what an event offers for matching: a NOAA number already shifted
// into FLARECAST numbering, and a location already projected to event time.
type Target struct {
	RegionNumber RegionNumber
	Location     LocationCode
}

// Searchable reports whether either matching pass can run.
func (t Target) Searchable() bool {
	return t.RegionNumber.Valid || !t.Location.IsBlank()
}

// Matcher selects at most one property record per event.
type Matcher struct {
	tolerance float64
}

// NewMatcher returns a Matcher. A non-positive tolerance uses DefaultTolerance.
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{tolerance: tolerance}
}

// Tolerance returns the positional tolerance in degrees.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match runs the number pass, then the positional pass. Candidates are
// examined in the order given; the first acceptable one wins.
func (m *Matcher) Match(t Target, candidates []PropertyRecord) (MatchedProperties, bool) {
	if t.RegionNumber.Valid {
		if rec, ok := matchByNumber(t.RegionNumber.Value, candidates); ok {
			return newMatch(MatchByNumber, 0, rec), true
		}
	}

	if t.Location.IsBlank() {
		return MatchedProperties{}, false
	}
	coord, err := DecodeLocation(t.Location)
	if err != nil {
		return MatchedProperties{}, false
	}
	for _, rec := range candidates {
		if diff, ok := m.positionDiff(coord, rec); ok {
			return newMatch(MatchByPosition, diff, rec), true
		}
	}
	return MatchedProperties{}, false
}

// matchByNumber accepts only records that name exactly one NOAA region.
func matchByNumber(nar int, candidates []PropertyRecord) (PropertyRecord, bool) {
	for _, rec := range candidates {
		if len(rec.RegionNumbers) == 1 && slices.Contains(rec.RegionNumbers, nar) {
			return rec, true
		}
	}
	return PropertyRecord{}, false
}

// positionDiff compares disk-center distances when the record lies in the
// same quadrant as the event location.
func (m *Matcher) positionDiff(c Coordinate, rec PropertyRecord) (float64, bool) {
	if signOf(rec.Lon) != c.LonSign || signOf(rec.Lat) != c.LatSign {
		return 0, false
	}
	diff := math.Abs(math.Hypot(rec.Lon, rec.Lat) - c.Distance())
	if diff < m.tolerance {
		return diff, true
	}
	return 0, false
}

func signOf(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func newMatch(method MatchMethod, quality float64, rec PropertyRecord) MatchedProperties {
	return MatchedProperties{
		Method:     method,
		Quality:    quality,
		HARP:       rec.HARP,
		Time:       rec.Time,
		Lat:        rec.Lat,
		Lon:        rec.Lon,
		Properties: rec.Data,
	}
}
