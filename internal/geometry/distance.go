package geometry

import (
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// CellPrecision is the geohash length used for statistics cells (~5km)
const CellPrecision = 5

// DistanceKm returns the haversine distance between two points in kilometers
func DistanceKm(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Cell returns the geohash cell of a point at the given precision
func Cell(p orb.Point, precision uint) string {
	return geohash.EncodeWithPrecision(p.Lat(), p.Lon(), precision)
}
