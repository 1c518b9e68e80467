package geo

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius used by every distance calculation in the service.
	EarthRadiusMiles = 3959.0

	// MilesPerDegreeLatitude approximates the length of one degree of latitude.
	MilesPerDegreeLatitude = 69.0
)

// ToRadians converts degrees to radians
func ToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// DistanceMiles returns the great-circle distance between two coordinates in miles.
// It uses the spherical law of cosines form that the vehicle search SQL has always used:
//
//	3959 * acos(cos(lat1)*cos(lat2)*cos(lng2-lng1) + sin(lat1)*sin(lat2))
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := ToRadians(lat1)
	phi2 := ToRadians(lat2)
	deltaLambda := ToRadians(lng2 - lng1)

	cosine := math.Cos(phi1)*math.Cos(phi2)*math.Cos(deltaLambda) + math.Sin(phi1)*math.Sin(phi2)

	// Rounding can push identical points slightly above 1, which would make acos return NaN.
	if cosine > 1 {
		cosine = 1
	} else if cosine < -1 {
		cosine = -1
	}

	return EarthRadiusMiles * math.Acos(cosine)
}
