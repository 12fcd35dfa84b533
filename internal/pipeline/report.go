package pipeline

import "time"

// Outcome classifies what enrichment did with one event.
type Outcome string

const (
	OutcomeMatchedNumber   Outcome = "matched_number"
	OutcomeMatchedPosition Outcome = "matched_position"
	OutcomeUnmatched       Outcome = "unmatched"
	OutcomeBeforeDataStart Outcome = "skipped_before_data_start"
	OutcomeNoRegion        Outcome = "skipped_no_region"
)

// Report aggregates the outcomes of one catalog run.
type Report struct {
	CatalogEvents          int           `json:"catalog_events"`
	Selected               int           `json:"selected"`
	MatchedByNumber        int           `json:"matched_number"`
	MatchedByPosition      int           `json:"matched_position"`
	Unmatched              int           `json:"unmatched"`
	SkippedBeforeDataStart int           `json:"skipped_before_data_start"`
	SkippedNoRegion        int           `json:"skipped_no_region"`
	Duration               time.Duration `json:"duration_ns"`
}

// Matched returns the number of events that received a FLARECAST region.
func (r Report) Matched() int {
	return r.MatchedByNumber + r.MatchedByPosition
}

// Skipped returns the number of events never sent to the property service.
func (r Report) Skipped() int {
	return r.SkippedBeforeDataStart + r.SkippedNoRegion
}

// tally counts outcomes. Empty entries belong to events that never ran.
func (r *Report) tally(outcomes []Outcome) {
	for _, o := range outcomes {
		switch o {
		case OutcomeMatchedNumber:
			r.MatchedByNumber++
		case OutcomeMatchedPosition:
			r.MatchedByPosition++
		case OutcomeUnmatched:
			r.Unmatched++
		case OutcomeBeforeDataStart:
			r.SkippedBeforeDataStart++
		case OutcomeNoRegion:
			r.SkippedNoRegion++
		}
	}
}
