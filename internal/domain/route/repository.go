package route

import (
	"context"

	"github.com/google/uuid"
)

// RouteRunRepository defines the persistence contract for route-run outcome records.
type RouteRunRepository interface {
	// SaveBatch persists the outcome records of one batch.
	SaveBatch(ctx context.Context, batchID uuid.UUID, runs []RouteRun) error

	// ListRecent retrieves run records, newest first, with pagination. An empty
	// status matches every record.
	ListRecent(ctx context.Context, status RouteStatus, page, limit int) ([]RouteRun, int64, error)

	// CountByStatus returns run counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
