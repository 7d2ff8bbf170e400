package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/gateway"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/polyline"
)

const (
	// DefaultConcurrency bounds parallel provider calls within one batch.
	DefaultConcurrency = 4

	// originCellPrecision is the geohash length of a van's origin cell (about 150 m).
	originCellPrecision = 7

	// sideEffectTimeout bounds recording and publishing after a batch resolves.
	sideEffectTimeout = 5 * time.Second

	serviceSource = "service-routing"
)

// EventPublisher publishes CloudEvents. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// ServiceConfig tunes the route service.
type ServiceConfig struct {
	Options      gateway.Options
	Concurrency  int
	BatchTimeout time.Duration
}

// StreetRouteDTO is the single-van response.
type StreetRouteDTO struct {
	Success  bool             `json:"success"`
	Route    []route.Waypoint `json:"route"`
	Distance float64          `json:"distance"`
	Duration float64          `json:"duration"`
	Summary  string           `json:"summary,omitempty"`
}

// BatchResult is the outcome of one resolved batch. Results are in input order
// with vans of fewer than two waypoints left out.
type BatchResult struct {
	BatchID  uuid.UUID              `json:"batch_id"`
	Source   string                 `json:"source"`
	Results  []route.VanRouteResult `json:"results"`
	OK       int                    `json:"ok"`
	Fallback int                    `json:"fallback"`
	Error    int                    `json:"error"`
	Skipped  int                    `json:"skipped"`
}

// RouteService resolves street routes for vans through the routing provider.
type RouteService struct {
	fetcher      gateway.RouteFetcher
	opts         gateway.Options
	concurrency  int
	batchTimeout time.Duration
	runs         route.RouteRunRepository
	publisher    EventPublisher
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewRouteService creates a new RouteService. runs and publisher may be nil, in
// which case batches are neither recorded nor announced.
func NewRouteService(
	fetcher gateway.RouteFetcher,
	cfg ServiceConfig,
	runs route.RouteRunRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *RouteService {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &RouteService{
		fetcher:      fetcher,
		opts:         cfg.Options,
		concurrency:  concurrency,
		batchTimeout: cfg.BatchTimeout,
		runs:         runs,
		publisher:    publisher,
		validate:     validator.New(),
		logger:       logger,
	}
}

// GetStreetRoute resolves one waypoint list. Unlike a batch, failures are
// returned to the caller unchanged.
func (s *RouteService) GetStreetRoute(ctx context.Context, waypoints []route.Waypoint) (*StreetRouteDTO, error) {
	if len(waypoints) < route.MinWaypoints {
		return nil, domain.NewValidationError(fmt.Sprintf("at least %d waypoints are required", route.MinWaypoints))
	}
	if err := s.validateWaypoints(waypoints); err != nil {
		return nil, err
	}

	resp, err := s.fetcher.FetchRoute(ctx, waypoints, s.opts)
	if err != nil {
		s.logger.Warn("street route failed",
			zap.Int("waypoints", len(waypoints)),
			zap.Error(err),
		)
		return nil, err
	}

	coords, err := polyline.Decode(resp.EncodedPolyline)
	if err != nil {
		s.logger.Warn("street route geometry rejected", zap.Error(err))
		return nil, err
	}

	return &StreetRouteDTO{
		Success:  true,
		Route:    coords,
		Distance: resp.DistanceKm,
		Duration: resp.DurationMin,
		Summary:  resp.Summary,
	}, nil
}

// ResolveRoutes resolves every van with at least two waypoints and returns one
// result per such van, in input order. A failing van never affects another.
func (s *RouteService) ResolveRoutes(ctx context.Context, reqs []route.VanRouteRequest) []route.VanRouteResult {
	routable, _ := s.partitionRoutable(reqs)
	return s.resolve(ctx, routable)
}

// ResolveBatch resolves reqs like ResolveRoutes, then records the outcome and
// publishes a route.batch.resolved event. Recording and publishing failures are
// logged only.
func (s *RouteService) ResolveBatch(ctx context.Context, source string, reqs []route.VanRouteRequest) BatchResult {
	routable, skipped := s.partitionRoutable(reqs)
	batch := BatchResult{
		BatchID: uuid.New(),
		Source:  source,
		Skipped: skipped,
	}

	start := time.Now()
	batch.Results = s.resolve(ctx, routable)
	for _, r := range batch.Results {
		switch r.Status {
		case route.StatusOK:
			batch.OK++
		case route.StatusFallback:
			batch.Fallback++
		default:
			batch.Error++
		}
	}

	s.logger.Info("route batch resolved",
		zap.String("batch_id", batch.BatchID.String()),
		zap.String("source", source),
		zap.Int("ok", batch.OK),
		zap.Int("fallback", batch.Fallback),
		zap.Int("error", batch.Error),
		zap.Int("skipped", batch.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	runs := toRouteRuns(batch, routable)
	s.recordRuns(sideCtx, batch.BatchID, runs)
	s.publishBatchResolved(sideCtx, batch, runs)

	return batch
}

// resolve fans the requests out over at most s.concurrency goroutines. When the
// batch deadline passes, unresolved vans get a fallback and late answers are dropped.
func (s *RouteService) resolve(ctx context.Context, reqs []route.VanRouteRequest) []route.VanRouteResult {
	results := make([]route.VanRouteResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	batchCtx, cancel := s.batchContext(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		resolved = make([]bool, len(reqs))
		sealed   bool
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, req := range reqs {
			if batchCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := s.resolveOne(batchCtx, req)
				mu.Lock()
				defer mu.Unlock()
				if !sealed {
					results[i] = res
					resolved[i] = true
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-batchCtx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	sealed = true
	for i, ok := range resolved {
		if ok {
			continue
		}
		detail := batchAbortDetail(batchCtx)
		s.logger.Warn("van unresolved when batch ended, using fallback",
			zap.String("van_id", reqs[i].VanID),
			zap.String("reason", detail),
		)
		results[i] = route.NewFallbackResult(reqs[i], detail)
	}
	return results
}

func (s *RouteService) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.batchTimeout > 0 {
		return context.WithTimeout(ctx, s.batchTimeout)
	}
	return context.WithCancel(ctx)
}

// resolveOne never fails: invalid input and configuration problems yield an error
// result, every other failure a fallback.
func (s *RouteService) resolveOne(ctx context.Context, req route.VanRouteRequest) route.VanRouteResult {
	log := s.logger.With(zap.String("van_id", req.VanID))

	if err := s.validateWaypoints(req.Waypoints); err != nil {
		log.Warn("van request rejected", zap.Error(err))
		return route.NewErrorResult(req.VanID, err.Error())
	}

	resp, err := s.fetcher.FetchRoute(ctx, req.Waypoints, s.opts)
	if err != nil {
		if domain.IsValidationError(err) || domain.IsConfigError(err) {
			log.Error("van route cannot be requested", zap.Error(err))
			return route.NewErrorResult(req.VanID, err.Error())
		}
		log.Warn("van route failed, using fallback", zap.Error(err))
		return route.NewFallbackResult(req, err.Error())
	}

	coords, err := polyline.Decode(resp.EncodedPolyline)
	if err != nil {
		log.Warn("van route geometry rejected, using fallback", zap.Error(err))
		return route.NewFallbackResult(req, err.Error())
	}
	if len(coords) == 0 {
		log.Warn("van route geometry empty, using fallback")
		return route.NewFallbackResult(req, "provider returned empty geometry")
	}

	return route.NewOKResult(req.VanID, coords, resp.DistanceKm, resp.DurationMin)
}

func (s *RouteService) validateWaypoints(waypoints []route.Waypoint) error {
	for i, w := range waypoints {
		if err := s.validate.Struct(w); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				return domain.NewValidationError(fmt.Sprintf("waypoint %d: %s out of range (%v)", i, fieldErrs[0].Field(), fieldErrs[0].Value()))
			}
			return domain.NewValidationError(fmt.Sprintf("waypoint %d: %v", i, err))
		}
	}
	return nil
}

func (s *RouteService) recordRuns(ctx context.Context, batchID uuid.UUID, runs []route.RouteRun) {
	if s.runs == nil || len(runs) == 0 {
		return
	}
	if err := s.runs.SaveBatch(ctx, batchID, runs); err != nil {
		s.logger.Error("failed to record route runs",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}
}

func (s *RouteService) publishBatchResolved(ctx context.Context, batch BatchResult, runs []route.RouteRun) {
	if s.publisher == nil {
		return
	}

	evt := route.RouteBatchResolvedEvent{
		BatchID:    batch.BatchID,
		Source:     batch.Source,
		OK:         batch.OK,
		Fallback:   batch.Fallback,
		Error:      batch.Error,
		Vans:       make([]route.VanRouteSummary, len(runs)),
		OccurredAt: time.Now().UTC(),
	}
	for i, run := range runs {
		evt.Vans[i] = route.VanRouteSummary{
			VanID:       run.VanID,
			Status:      run.Status,
			PointCount:  run.PointCount,
			DistanceKm:  run.DistanceKm,
			DurationMin: run.DurationMin,
			OriginCell:  run.OriginCell,
			ErrorDetail: run.ErrorDetail,
		}
	}

	s.publishEvent(ctx, route.TopicRouteEvents, route.RouteBatchResolved, batch.BatchID.String(), evt)
}

// publishEvent is a helper that publishes a CloudEvent, logging errors without failing.
func (s *RouteService) publishEvent(ctx context.Context, topic, eventType, subject string, data interface{}) {
	ce, err := kafka.NewCloudEvent(serviceSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}
	ce = ce.WithSubject(subject)

	if err := s.publisher.PublishEvent(ctx, topic, ce); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func (s *RouteService) partitionRoutable(reqs []route.VanRouteRequest) ([]route.VanRouteRequest, int) {
	routable := make([]route.VanRouteRequest, 0, len(reqs))
	for _, req := range reqs {
		if !req.Routable() {
			s.logger.Debug("skipping van without origin and destination",
				zap.String("van_id", req.VanID),
				zap.Int("waypoints", len(req.Waypoints)),
			)
			continue
		}
		routable = append(routable, req)
	}
	return routable, len(reqs) - len(routable)
}

func batchAbortDetail(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "batch deadline exceeded before route resolved"
	}
	return "batch cancelled before route resolved"
}

// toRouteRuns pairs each result with the request it came from.
func toRouteRuns(batch BatchResult, reqs []route.VanRouteRequest) []route.RouteRun {
	now := time.Now().UTC()
	runs := make([]route.RouteRun, len(batch.Results))
	for i, res := range batch.Results {
		req := reqs[i]
		runs[i] = route.RouteRun{
			ID:            uuid.New(),
			BatchID:       batch.BatchID,
			VanID:         res.VanID,
			Status:        res.Status,
			ErrorDetail:   res.ErrorDetail,
			WaypointCount: len(req.Waypoints),
			PointCount:    len(res.Coordinates),
			DistanceKm:    res.DistanceKm,
			DurationMin:   res.DurationMin,
			OriginCell:    originCell(req),
			Source:        batch.Source,
			CreatedAt:     now,
		}
	}
	return runs
}

// originCell is the geohash of the van's first stop, or "" when it is out of range.
func originCell(req route.VanRouteRequest) string {
	if !req.Routable() || !req.Origin().InRange() {
		return ""
	}
	o := req.Origin()
	return geohash.EncodeWithPrecision(o.Lat, o.Lng, originCellPrecision)
}
