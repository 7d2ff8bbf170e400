package route

import "math"

// Waypoint is a single geographic stop point. Order within a route is significant.
type Waypoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

const (
	earthRadiusKm = 6371.0
	deg2rad       = math.Pi / 180.0

	// Straight-line travel estimate used when no street route is available.
	// Trips from cityDistanceKm up are assumed 70% highway, 30% city.
	citySpeedKmh    = 60.0
	highwaySpeedKmh = 105.0
	highwayShare    = 0.7
	cityDistanceKm  = 15.0
	safetyBuffer    = 1.2
	minutesPerHour  = 60.0
)

// InRange reports whether the coordinates are valid WGS84 degrees.
func (w Waypoint) InRange() bool {
	return w.Lat >= -90 && w.Lat <= 90 && w.Lng >= -180 && w.Lng <= 180
}

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b Waypoint) float64 {
	dLat := (b.Lat - a.Lat) * deg2rad
	dLng := (b.Lng - a.Lng) * deg2rad
	lat1 := a.Lat * deg2rad
	lat2 := b.Lat * deg2rad

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// PathLengthKm returns the straight-line length of the ordered waypoint sequence.
func PathLengthKm(points []Waypoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// EstimateDurationMin converts a straight-line distance into minutes, including
// the 20% safety buffer. Short trips run at city speed, longer ones at a blend of
// highway and city speed.
func EstimateDurationMin(distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	speedKmh := citySpeedKmh
	if distanceKm >= cityDistanceKm {
		speedKmh = highwaySpeedKmh*highwayShare + citySpeedKmh*(1-highwayShare)
	}
	return distanceKm / speedKmh * minutesPerHour * safetyBuffer
}

// CopyWaypoints returns an independent copy of points. A nil input yields an empty slice.
func CopyWaypoints(points []Waypoint) []Waypoint {
	out := make([]Waypoint, len(points))
	copy(out, points)
	return out
}
