package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// saveBatchSize is the number of rows per INSERT when saving a batch.
const saveBatchSize = 100

// RouteRunModel is the GORM model for the route_runs table.
type RouteRunModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID       uuid.UUID `gorm:"type:uuid;index;not null"`
	VanID         string    `gorm:"type:text;not null"`
	Status        string    `gorm:"not null;size:16;index"`
	ErrorDetail   string    `gorm:"type:text;not null;default:''"`
	WaypointCount int       `gorm:"not null;default:0"`
	PointCount    int       `gorm:"not null;default:0"`
	DistanceKm    float64   `gorm:"not null;default:0"`
	DurationMin   float64   `gorm:"not null;default:0"`
	OriginCell    string    `gorm:"not null;size:12;default:''"`
	Source        string    `gorm:"type:text;not null;default:''"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (RouteRunModel) TableName() string {
	return "route_runs"
}

// GormRouteRunRepository is the GORM-based implementation of RouteRunRepository.
type GormRouteRunRepository struct {
	db *gorm.DB
}

// NewGormRouteRunRepository creates a new GormRouteRunRepository.
func NewGormRouteRunRepository(db *gorm.DB) *GormRouteRunRepository {
	return &GormRouteRunRepository{db: db}
}

// SaveBatch inserts the run records of one batch in a single transaction.
func (r *GormRouteRunRepository) SaveBatch(ctx context.Context, batchID uuid.UUID, runs []route.RouteRun) error {
	if len(runs) == 0 {
		return nil
	}

	models := make([]RouteRunModel, len(runs))
	for i, run := range runs {
		run.BatchID = batchID
		models[i] = toRouteRunModel(run)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, saveBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save route runs: %w", err)
	}
	return nil
}

// ListRecent retrieves run records, newest first, with pagination.
func (r *GormRouteRunRepository) ListRecent(ctx context.Context, status route.RouteStatus, page, limit int) ([]route.RouteRun, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&RouteRunModel{}).Scopes(withStatus(status)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count route runs: %w", err)
	}

	var models []RouteRunModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(withStatus(status)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list route runs: %w", err)
	}

	runs := make([]route.RouteRun, len(models))
	for i, m := range models {
		runs[i] = toDomainRouteRun(m)
	}
	return runs, total, nil
}

// CountByStatus returns run counts grouped by status.
func (r *GormRouteRunRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&RouteRunModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count route runs by status: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, row := range results {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// withStatus restricts a query to one status; the empty status matches all.
func withStatus(status route.RouteStatus) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status.String())
	}
}

func toRouteRunModel(run route.RouteRun) RouteRunModel {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	id := run.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return RouteRunModel{
		ID:            id,
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
		CreatedAt:     createdAt,
	}
}

func toDomainRouteRun(m RouteRunModel) route.RouteRun {
	return route.RouteRun{
		ID:            m.ID,
		BatchID:       m.BatchID,
		VanID:         m.VanID,
		Status:        route.RouteStatus(m.Status),
		ErrorDetail:   m.ErrorDetail,
		WaypointCount: m.WaypointCount,
		PointCount:    m.PointCount,
		DistanceKm:    m.DistanceKm,
		DurationMin:   m.DurationMin,
		OriginCell:    m.OriginCell,
		Source:        m.Source,
		CreatedAt:     m.CreatedAt,
	}
}
