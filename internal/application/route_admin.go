package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// RouteRunDTO is the admin representation of one recorded van outcome.
type RouteRunDTO struct {
	ID            uuid.UUID `json:"id"`
	BatchID       uuid.UUID `json:"batch_id"`
	VanID         string    `json:"van_id"`
	Status        string    `json:"status"`
	ErrorDetail   string    `json:"error_detail,omitempty"`
	WaypointCount int       `json:"waypoint_count"`
	PointCount    int       `json:"point_count"`
	DistanceKm    float64   `json:"distance_km"`
	DurationMin   float64   `json:"duration_min"`
	OriginCell    string    `json:"origin_cell,omitempty"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// RouteStatsDTO summarizes recorded outcomes by status.
type RouteStatsDTO struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	FallbackRate float64          `json:"fallback_rate"`
}

// ListRouteRuns returns recorded run outcomes, newest first. An empty status
// lists every outcome.
func (s *RouteService) ListRouteRuns(ctx context.Context, status route.RouteStatus, page, limit int) ([]RouteRunDTO, int64, error) {
	if s.runs == nil {
		return []RouteRunDTO{}, 0, nil
	}
	runs, total, err := s.runs.ListRecent(ctx, status, page, limit)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]RouteRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRouteRunDTO(run)
	}
	return dtos, total, nil
}

// GetRouteStats returns run counts per status and the share of fallbacks.
func (s *RouteService) GetRouteStats(ctx context.Context) (*RouteStatsDTO, error) {
	stats := &RouteStatsDTO{ByStatus: map[string]int64{}}
	if s.runs == nil {
		return stats, nil
	}

	counts, err := s.runs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if stats.Total > 0 {
		stats.FallbackRate = float64(counts[route.StatusFallback.String()]) / float64(stats.Total)
	}
	return stats, nil
}

func toRouteRunDTO(run route.RouteRun) RouteRunDTO {
	return RouteRunDTO{
		ID:            run.ID,
		BatchID:       run.BatchID,
		VanID:         run.VanID,
		Status:        run.Status.String(),
		ErrorDetail:   run.ErrorDetail,
		WaypointCount: run.WaypointCount,
		PointCount:    run.PointCount,
		DistanceKm:    run.DistanceKm,
		DurationMin:   run.DurationMin,
		OriginCell:    run.OriginCell,
		Source:        run.Source,
		CreatedAt:     run.CreatedAt,
	}
}
