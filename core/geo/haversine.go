package geo

import "math"

// EarthRadiusM is the mean Earth radius used for all distances, in meters.
const EarthRadiusM = 6371000.0

// Point is a coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether p is a finite coordinate within WGS84 bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	return centralAngle(rad(a.Lat), rad(a.Lon), math.Cos(rad(a.Lat)), rad(b.Lat), rad(b.Lon), math.Cos(rad(b.Lat))) * EarthRadiusM
}

func centralAngle(lat1, lon1, cos1, lat2, lon2, cos2 float64) float64 {
	sLat := math.Sin((lat2 - lat1) / 2)
	sLon := math.Sin((lon2 - lon1) / 2)
	h := sLat*sLat + cos1*cos2*sLon*sLon
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
