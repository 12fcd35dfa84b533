// Package domain models the HELCATS/LOWCAT flare-CME catalog and the
// FLARECAST active-region property database, and implements the matching
// rules that connect the two.
//
// # Data Sources
//
// Events come from the HELCATS LOWCAT catalog, a JSON array with one object per
// CME and its associated flare. Region properties come from the FLARECAST
// property service, which serves SHARP-derived magnetic properties per
// active region per time sample at GET {service}/region/{dataset}/list.
//
// # Catalog Conventions
//
// Location format:
//
//	"<NS><lat><EW><lon>"  →  e.g. "N12E34"
//	12 degrees north, 34 degrees east of central meridian.
//	A single blank (" ") means no location was recorded.
//
// Longitude sign is inverted relative to the letter: east is negative, west is
// positive. Latitude follows the letter: north is positive. Signs are always
// ±1, including at zero magnitude ("N00W00" is +1/+1).
//
// Region numbers:
//
//	SRS_NO holds a 4-digit NOAA number (e.g. 1745). FLARECAST stores the full
//	5-digit number (11745), so the pipeline adds a configurable offset before
//	comparing. FLARECAST rows may carry several NOAA numbers when regions merge;
//	such rows never count as an exact match.
//
// Location precedence:
//
//	FL_LOC is the flare position at flare time (SMART_HGLATLON in exports that
//	carry the SMART position instead). When blank or malformed, SRS_LOC (the SRS
//	report position at SRS_TIME, usually 00:00 UT) is projected to the flare
//	start with the differential rotation law in [ProjectLocation].
//
// # Differential Rotation
//
//	rate(lat) = 14.713 − 2.396·sin²(lat) − 1.787·sin⁴(lat)   deg/day
//
// Longitudes move westward (positive) with elapsed time. See [RotationRate].
//
// # Matching
//
// [Matcher] picks at most one FLARECAST record per event: a single-entry NOAA
// number match first (quality 0), then the first record in fetch order whose
// quadrant agrees with the event location and whose distance from disk center
// differs from the event's by less than the tolerance.
//
// # Time Series
//
// [Assembler] packs the matched region's hourly history into fixed-length
// arrays, oldest first. Index len−1 is the matched sample (0 hours before),
// index 0 is len−1 hours before. Missing samples are nil.
package domain
