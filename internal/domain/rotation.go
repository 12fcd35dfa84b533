package domain

import (
	"math"
	"time"
)

// Synodic differential rotation coefficients, deg/day.
const (
	rotationA = 14.713
	rotationB = -2.396
	rotationC = -1.787

	minutesPerDay = 1440.0
)

// RotationRate returns the surface rotation rate in degrees per day at the
// given latitude in degrees.
func RotationRate(latDeg float64) float64 {
	s := math.Sin(latDeg * math.Pi / 180)
	s2 := s * s
	return rotationA + rotationB*s2 + rotationC*s2*s2
}

// ProjectLocation moves a position observed at from to where differential
// rotation carries it at to. Latitude is unchanged. Elapsed time is counted in
// whole minutes and may be negative.
func ProjectLocation(code LocationCode, from, to time.Time) (LocationCode, error) {
	c, err := DecodeLocation(code)
	if err != nil {
		return "", err
	}

	minutes := math.Trunc(to.Sub(from).Minutes())
	lon := wrapLongitude(c.SignedLon() + minutes*RotationRate(c.SignedLat())/minutesPerDay)

	out := Coordinate{LatSign: c.LatSign, Lat: c.Lat, LonSign: c.LonSign}
	switch {
	case lon > 0:
		out.LonSign = 1
	case lon < 0:
		out.LonSign = -1
	}
	out.Lon = int(math.Abs(lon))
	return EncodeLocation(out), nil
}

// wrapLongitude folds a longitude into [-180, 180].
func wrapLongitude(lon float64) float64 {
	for lon > MaxLongitude {
		lon -= 360
	}
	for lon < -MaxLongitude {
		lon += 360
	}
	return lon
}
