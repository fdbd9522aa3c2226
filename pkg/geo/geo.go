// Package geo provides the small amount of geodesy the bridge needs:
// distances for the distance filter and dead reckoning for the mock device.
package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Orb converts p to an orb.Point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func fromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return orbgeo.DistanceHaversine(p1.Orb(), p2.Orb())
}

// DestinationPoint calculates the destination point from a start point, given distance (in meters) and bearing (in degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	return fromOrb(orbgeo.PointAtBearingAndDistance(start.Orb(), bearing, distMeters))
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees [0, 360).
func Bearing(p1, p2 Point) float64 {
	b := orbgeo.Bearing(p1.Orb(), p2.Orb())
	if b < 0 {
		b += 360
	}
	return b
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}

// Moved reports whether to is at least minMeters away from from.
// A non-positive threshold always counts as moved.
func Moved(from, to Point, minMeters float64) bool {
	if minMeters <= 0 {
		return true
	}
	return Distance(from, to) >= minMeters
}
