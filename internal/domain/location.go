package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNoLocation is returned for blank location codes.
	ErrNoLocation = errors.New("no location recorded")

	// ErrMalformedLocation is returned for codes that do not follow <NS><lat><EW><lon>.
	ErrMalformedLocation = errors.New("malformed location code")
)

// Magnitude limits for heliographic coordinates, in degrees.
const (
	MaxLatitude  = 90
	MaxLongitude = 180
)

// LocationCode is a compact heliographic position such as "N12E34".
type LocationCode string

// IsBlank reports whether the code carries no position.
func (c LocationCode) IsBlank() bool {
	return strings.TrimSpace(string(c)) == ""
}

// Coordinate is a decoded LocationCode. Signs are always +1 or -1; magnitudes
// are whole degrees.
type Coordinate struct {
	LatSign int
	LonSign int
	Lat     int
	Lon     int
}

// SignedLat returns the latitude in degrees, north positive.
func (c Coordinate) SignedLat() float64 {
	return float64(c.LatSign * c.Lat)
}

// SignedLon returns the longitude in degrees, west positive.
func (c Coordinate) SignedLon() float64 {
	return float64(c.LonSign * c.Lon)
}

// Distance is the degree-space distance from disk center.
func (c Coordinate) Distance() float64 {
	return math.Hypot(float64(c.Lat), float64(c.Lon))
}

// Valid reports whether signs and magnitudes are within range.
func (c Coordinate) Valid() bool {
	return isSign(c.LatSign) && isSign(c.LonSign) &&
		c.Lat >= 0 && c.Lat <= MaxLatitude &&
		c.Lon >= 0 && c.Lon <= MaxLongitude
}

func isSign(s int) bool {
	return s == 1 || s == -1
}

// DecodeLocation parses a code of the form <NS><lat><EW><lon>. Latitude is two
// digits; longitude is two digits, or three beyond 99 degrees.
func DecodeLocation(code LocationCode) (Coordinate, error) {
	s := strings.ToUpper(strings.TrimSpace(string(code)))
	if s == "" {
		return Coordinate{}, ErrNoLocation
	}
	if len(s) != 6 && len(s) != 7 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedLocation, code)
	}

	var c Coordinate
	switch s[0] {
	case 'N':
		c.LatSign = 1
	case 'S':
		c.LatSign = -1
	default:
		return Coordinate{}, fmt.Errorf("%w: %q: latitude hemisphere %q", ErrMalformedLocation, code, s[0])
	}
	switch s[3] {
	case 'E':
		c.LonSign = -1
	case 'W':
		c.LonSign = 1
	default:
		return Coordinate{}, fmt.Errorf("%w: %q: longitude hemisphere %q", ErrMalformedLocation, code, s[3])
	}

	lat, err := parseDegrees(s[1:3])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q: latitude: %v", ErrMalformedLocation, code, err)
	}
	lon, err := parseDegrees(s[4:])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q: longitude: %v", ErrMalformedLocation, code, err)
	}
	c.Lat, c.Lon = lat, lon

	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: %q: out of range", ErrMalformedLocation, code)
	}
	return c, nil
}

func parseDegrees(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}

// EncodeLocation formats a coordinate as a location code with zero-padded
// magnitudes.
func EncodeLocation(c Coordinate) LocationCode {
	ns := 'N'
	if c.LatSign < 0 {
		ns = 'S'
	}
	ew := 'W'
	if c.LonSign < 0 {
		ew = 'E'
	}
	return LocationCode(fmt.Sprintf("%c%02d%c%02d", ns, c.Lat, ew, c.Lon))
}
