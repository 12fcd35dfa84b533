package domain

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultSeriesLength covers hour offsets 0..24 before the matched sample.
const DefaultSeriesLength = 25

// TimeSeries is a fixed-length hourly history of named properties, oldest
// first. A nil entry means no value was available for that hour.
type TimeSeries struct {
	HARP        int
	Reference   time.Time
	HoursBefore []int
	Times       []*time.Time
	Values      map[string][]*float64
	Names       []string
}

// Len returns the number of samples.
func (ts TimeSeries) Len() int {
	return len(ts.HoursBefore)
}

// Cells counts filled and missing property values.
func (ts TimeSeries) Cells() (filled, missing int) {
	for _, name := range ts.Names {
		for _, v := range ts.Values[name] {
			if v == nil {
				missing++
			} else {
				filled++
			}
		}
	}
	return filled, missing
}

// MarshalJSON writes the series as parallel arrays keyed by property name.
func (ts TimeSeries) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ts.Values)+4)
	out["harp"] = ts.HARP
	out["reference_time"] = ts.Reference
	out["hours_before"] = ts.HoursBefore
	out["time"] = ts.Times
	for name, vals := range ts.Values {
		out[name] = vals
	}
	return json.Marshal(out)
}

// Assembler builds TimeSeries from hourly property records.
type Assembler struct {
	length     int
	properties []PropertyPath
}

// NewAssembler returns an Assembler. A non-positive length uses
// DefaultSeriesLength; nil properties use DefaultSeriesProperties.
func NewAssembler(length int, properties []PropertyPath) *Assembler {
	if length <= 0 {
		length = DefaultSeriesLength
	}
	if properties == nil {
		properties = DefaultSeriesProperties
	}
	return &Assembler{length: length, properties: properties}
}

// Length returns the number of samples per series.
func (a *Assembler) Length() int {
	return a.length
}

// Assemble places each record of region harp at its whole-hour offset before
// reference. Records from other regions or outside the window are ignored. A
// property that cannot be extracted leaves only its own cell empty; a later
// record at the same offset overwrites earlier values.
func (a *Assembler) Assemble(harp int, reference time.Time, records []PropertyRecord) TimeSeries {
	ts := a.empty(harp, reference)

	for _, rec := range records {
		if rec.HARP != harp {
			continue
		}
		offset := int(math.Floor(reference.Sub(rec.Time).Hours()))
		if offset < 0 || offset >= a.length {
			continue
		}
		idx := a.length - 1 - offset

		t := rec.Time
		ts.Times[idx] = &t
		for _, p := range a.properties {
			v, err := p.Extract(rec.Data)
			if err != nil {
				continue
			}
			ts.Values[p.Name][idx] = &v
		}
	}
	return ts
}

func (a *Assembler) empty(harp int, reference time.Time) TimeSeries {
	ts := TimeSeries{
		HARP:        harp,
		Reference:   reference,
		HoursBefore: make([]int, a.length),
		Times:       make([]*time.Time, a.length),
		Values:      make(map[string][]*float64, len(a.properties)),
		Names:       make([]string, 0, len(a.properties)),
	}
	for i := range ts.HoursBefore {
		ts.HoursBefore[i] = a.length - 1 - i
	}
	for _, p := range a.properties {
		if _, dup := ts.Values[p.Name]; dup {
			continue
		}
		ts.Values[p.Name] = make([]*float64, a.length)
		ts.Names = append(ts.Names, p.Name)
	}
	return ts
}
