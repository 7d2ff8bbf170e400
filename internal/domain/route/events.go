package route

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics and CloudEvent types exchanged with the rest of the fleet.
const (
	TopicOptimizationEvents   = "optimization.events"
	OptimizationPlanCompleted = "optimization.plan.completed"

	TopicRouteEvents   = "route.events"
	RouteBatchResolved = "route.batch.resolved"
)

// OptimizationPlanCompletedEvent is published by the Optimization Service once it
// has assigned ordered stops to each van.
type OptimizationPlanCompletedEvent struct {
	PlanID string            `json:"plan_id" validate:"required"`
	Vans   []VanRouteRequest `json:"vans"`
}

// VanRouteSummary is the per-van part of a RouteBatchResolvedEvent. Geometry is
// not included; consumers fetch it from the caller that requested the batch.
type VanRouteSummary struct {
	VanID       string      `json:"van_id"`
	Status      RouteStatus `json:"status"`
	PointCount  int         `json:"point_count"`
	DistanceKm  float64     `json:"distance_km"`
	DurationMin float64     `json:"duration_min"`
	OriginCell  string      `json:"origin_cell,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
}

// RouteBatchResolvedEvent announces the outcome of one resolved batch.
type RouteBatchResolvedEvent struct {
	BatchID    uuid.UUID         `json:"batch_id"`
	Source     string            `json:"source"`
	OK         int               `json:"ok"`
	Fallback   int               `json:"fallback"`
	Error      int               `json:"error"`
	Vans       []VanRouteSummary `json:"vans"`
	OccurredAt time.Time         `json:"occurred_at"`
}
