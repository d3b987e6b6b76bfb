package matching

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// DefaultServiceRadiusKm applies when a technician has not set a radius.
const DefaultServiceRadiusKm = 50.0

// Haversine returns the great-circle distance in kilometers between two
// coordinate pairs. Symmetric in its arguments; zero for identical points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// hasCoords reports whether a lat/lon pair counts as present. Exactly (0,0)
// is treated as absent: it is the null-island artifact of unset columns, not
// a real service location.
func hasCoords(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	return *lat != 0 || *lon != 0
}
