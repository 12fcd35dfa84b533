package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// HELCATS catalog field names.
const (
	fieldType      = "FL_TYPE"
	fieldStart     = "FL_STARTTIME"
	fieldPeak      = "FL_PEAKTIME"
	fieldEnd       = "FL_ENDTIME"
	fieldSRSNumber = "SRS_NO"
	fieldLocation  = "FL_LOC"
	fieldSMARTLoc  = "SMART_HGLATLON"
	fieldSRSLoc    = "SRS_LOC"
	fieldSRSTime   = "SRS_TIME"
)

// ErrMissingStartTime is returned for catalog rows without a usable flare start.
var ErrMissingStartTime = errors.New("missing flare start time")

// timestampLayouts are tried in order. Values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in both catalogs and
// returns the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseCatalogEntry converts one HELCATS row into an Event. Only the flare
// start time is required; other fields are optional.
func ParseCatalogEntry(raw map[string]json.RawMessage) (Event, error) {
	start, err := ParseTimestamp(rawString(raw, fieldStart))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMissingStartTime, err)
	}

	ev := Event{
		SourceType:   strings.TrimSpace(rawString(raw, fieldType)),
		StartTime:    start,
		PeakTime:     parseOptionalTime(rawString(raw, fieldPeak)),
		EndTime:      parseOptionalTime(rawString(raw, fieldEnd)),
		RegionNumber: rawRegionNumber(raw, fieldSRSNumber),
		Location:     primaryLocation(raw),
		Raw:          raw,
	}

	if snap := LocationCode(strings.TrimSpace(rawString(raw, fieldSRSLoc))); !snap.IsBlank() {
		if t, err := ParseTimestamp(rawString(raw, fieldSRSTime)); err == nil {
			ev.Snapshot = &SnapshotLocation{Code: snap, Time: t}
		}
	}

	ev.ID = generateID(ev.SourceType, ev.StartTime, ev.Location, ev.RegionNumber)
	return ev, nil
}

// primaryLocation reads FL_LOC, falling back to the SMART position some
// catalog exports carry instead.
func primaryLocation(raw map[string]json.RawMessage) LocationCode {
	for _, key := range []string{fieldLocation, fieldSMARTLoc} {
		if loc := LocationCode(strings.TrimSpace(rawString(raw, key))); !loc.IsBlank() {
			return loc
		}
	}
	return ""
}

func parseOptionalTime(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// rawString returns a string field, formatting numbers as text. Missing or
// null fields return "".
func rawString(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawRegionNumber accepts SRS_NO as a JSON number or numeric string.
func rawRegionNumber(raw map[string]json.RawMessage, key string) RegionNumber {
	s := strings.TrimSpace(rawString(raw, key))
	if s == "" {
		return RegionNumber{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return RegionNumber{}
	}
	return NewRegionNumber(int(f))
}

// generateID produces a deterministic ID from the event's identifying fields so
// reruns over the same catalog publish the same keys.
func generateID(sourceType string, start time.Time, loc LocationCode, nar RegionNumber) string {
	input := fmt.Sprintf("%s|%s|%s|%d", sourceType, start.Format(time.RFC3339), loc, nar.Value)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if sourceType == "" {
		return short
	}
	return sourceType + "-" + short
}

// ResolveLocation returns the event position at flare start: FL_LOC when
// present and well formed, otherwise the SRS snapshot projected from its
// observation time.
func ResolveLocation(ev Event) (LocationCode, error) {
	var primaryErr error
	if !ev.Location.IsBlank() {
		c, err := DecodeLocation(ev.Location)
		if err == nil {
			return EncodeLocation(c), nil
		}
		primaryErr = err
	}
	if ev.Snapshot == nil || ev.Snapshot.Code.IsBlank() {
		if primaryErr != nil {
			return "", primaryErr
		}
		return "", ErrNoLocation
	}
	return ProjectLocation(ev.Snapshot.Code, ev.Snapshot.Time, ev.StartTime)
}

// Window returns [at−before, at+after) with both bounds truncated to the
// minute, as the property service indexes samples by minute.
func Window(at time.Time, before, after time.Duration) (time.Time, time.Time) {
	return at.Add(-before).Truncate(time.Minute), at.Add(after).Truncate(time.Minute)
}
