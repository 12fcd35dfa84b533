package domain

import (
	"encoding/json"
	"time"
)

// Output keys attached to a matched catalog row.
const (
	KeyFlarecastData  = "FC_data"
	KeyFlarecastMatch = "FC_match"
	KeyEventID        = "event_id"
	KeyProcessedAt    = "processed_at"
	KeyMatchQuality   = "fc_data_q"
)

// RegionNumber is an optional NOAA/SRS active-region number.
type RegionNumber struct {
	Value int
	Valid bool
}

// NewRegionNumber returns a present region number. Zero and negative values
// are treated as absent, matching how the catalog writes "no region".
func NewRegionNumber(n int) RegionNumber {
	if n <= 0 {
		return RegionNumber{}
	}
	return RegionNumber{Value: n, Valid: true}
}

// Offset shifts a present number by k. Absent numbers stay absent.
func (n RegionNumber) Offset(k int) RegionNumber {
	if !n.Valid {
		return n
	}
	return RegionNumber{Value: n.Value + k, Valid: true}
}

// SnapshotLocation is a low-cadence (daily SRS) position and the time it was
// observed.
type SnapshotLocation struct {
	Code LocationCode
	Time time.Time
}

// Event is one flare/CME row from the HELCATS catalog.
type Event struct {
	ID           string
	SourceType   string
	StartTime    time.Time
	PeakTime     time.Time
	EndTime      time.Time
	RegionNumber RegionNumber
	Location     LocationCode
	Snapshot     *SnapshotLocation

	// Enrichment results. At most one of Properties (match mode) or Series
	// (time-series mode) is attached alongside Match.
	Match       *MatchedProperties
	Series      *TimeSeries
	ProcessedAt time.Time

	// Raw keeps every field of the source row so the output catalog is the
	// input catalog plus the attached results.
	Raw map[string]json.RawMessage
}

// Matched reports whether a FLARECAST region was attached.
func (e Event) Matched() bool {
	return e.Match != nil
}

// MarshalJSON writes the original catalog row with the enrichment keys added.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Raw)+4)
	for k, v := range e.Raw {
		out[k] = v
	}
	if e.ID != "" {
		out[KeyEventID] = e.ID
	}
	if !e.ProcessedAt.IsZero() {
		out[KeyProcessedAt] = e.ProcessedAt
	}
	if e.Match != nil {
		out[KeyFlarecastMatch] = e.Match
		if e.Series != nil {
			out[KeyFlarecastData] = e.Series
		} else {
			out[KeyFlarecastData] = e.Match.DataWithQuality()
		}
	}
	return json.Marshal(out)
}
