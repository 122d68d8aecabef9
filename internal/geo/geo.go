// Package geo provides great-circle distance math for flight positions.
package geo

import (
	"math"
)

// EarthRadiusNM is the mean Earth radius in nautical miles. This exact value
// is load-bearing: recorded distance expectations were produced with it.
const EarthRadiusNM = 3440.065

// DistanceNM returns the haversine great-circle distance between two
// lat/lon points, in nautical miles. Inputs are degrees.
func DistanceNM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusNM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidCoordinates reports whether lat/lon form a usable position.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
