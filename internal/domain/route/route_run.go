package route

import (
	"time"

	"github.com/google/uuid"
)

// RouteRun is the outcome record of one van within one resolved batch. It holds
// counts and totals only, never geometry.
type RouteRun struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	VanID         string
	Status        RouteStatus
	ErrorDetail   string
	WaypointCount int
	PointCount    int
	DistanceKm    float64
	DurationMin   float64
	OriginCell    string
	Source        string
	CreatedAt     time.Time
}
