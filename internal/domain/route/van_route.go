package route

// MinWaypoints is the smallest waypoint list that describes a route (origin and destination).
const MinWaypoints = 2

// VanRouteRequest is the ordered stop list the Optimization Service assigned to one van.
type VanRouteRequest struct {
	VanID     string     `json:"van_id"`
	Waypoints []Waypoint `json:"waypoints" validate:"dive"`
}

// Routable reports whether the request has at least an origin and a destination.
func (r VanRouteRequest) Routable() bool {
	return len(r.Waypoints) >= MinWaypoints
}

// Origin returns the first waypoint. The request must be Routable.
func (r VanRouteRequest) Origin() Waypoint { return r.Waypoints[0] }

// Destination returns the last waypoint. The request must be Routable.
func (r VanRouteRequest) Destination() Waypoint { return r.Waypoints[len(r.Waypoints)-1] }

// Intermediates returns the waypoints strictly between origin and destination, in order.
func (r VanRouteRequest) Intermediates() []Waypoint {
	if len(r.Waypoints) <= MinWaypoints {
		return nil
	}
	return r.Waypoints[1 : len(r.Waypoints)-1]
}

// VanRouteResult is the resolved route of one van.
type VanRouteResult struct {
	VanID       string      `json:"van_id"`
	Coordinates []Waypoint  `json:"coordinates"`
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	Status      RouteStatus `json:"status"`
	ErrorDetail string      `json:"error_detail,omitempty"`
}

// NewOKResult builds a result carrying street-snapped geometry.
func NewOKResult(vanID string, coordinates []Waypoint, distanceKm, durationMin float64) VanRouteResult {
	return VanRouteResult{
		VanID:       vanID,
		Coordinates: coordinates,
		DistanceKm:  nonNegative(distanceKm),
		DurationMin: nonNegative(durationMin),
		Status:      StatusOK,
	}
}

// NewFallbackResult builds a result whose coordinates are a copy of the request's
// waypoints, with a straight-line distance and duration estimate.
func NewFallbackResult(req VanRouteRequest, detail string) VanRouteResult {
	distanceKm := PathLengthKm(req.Waypoints)
	return VanRouteResult{
		VanID:       req.VanID,
		Coordinates: CopyWaypoints(req.Waypoints),
		DistanceKm:  distanceKm,
		DurationMin: EstimateDurationMin(distanceKm),
		Status:      StatusFallback,
		ErrorDetail: detail,
	}
}

// NewErrorResult builds a result for a van that could not be routed at all.
func NewErrorResult(vanID, detail string) VanRouteResult {
	return VanRouteResult{
		VanID:       vanID,
		Coordinates: []Waypoint{},
		Status:      StatusError,
		ErrorDetail: detail,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
