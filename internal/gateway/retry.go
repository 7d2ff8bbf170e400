package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// defaultRetryInterval is the first backoff delay after a transport failure.
const defaultRetryInterval = 250 * time.Millisecond

// RetryingFetcher retries transport failures of an inner RouteFetcher with
// exponential backoff. Provider rejections and invalid input are returned at once.
type RetryingFetcher struct {
	inner           RouteFetcher
	maxRetries      uint64
	initialInterval time.Duration
	logger          *zap.Logger
}

// NewRetryingFetcher wraps inner. With maxRetries <= 0 it returns inner unchanged,
// so a zero configuration keeps single-attempt behavior.
func NewRetryingFetcher(inner RouteFetcher, maxRetries int, initialInterval time.Duration, logger *zap.Logger) RouteFetcher {
	if maxRetries <= 0 {
		return inner
	}
	if initialInterval <= 0 {
		initialInterval = defaultRetryInterval
	}
	return &RetryingFetcher{
		inner:           inner,
		maxRetries:      uint64(maxRetries),
		initialInterval: initialInterval,
		logger:          logger,
	}
}

// FetchRoute satisfies RouteFetcher.
func (f *RetryingFetcher) FetchRoute(ctx context.Context, waypoints []route.Waypoint, opts Options) (*RouteResponse, error) {
	var resp *RouteResponse
	attempt := 0

	operation := func() error {
		attempt++
		r, err := f.inner.FetchRoute(ctx, waypoints, opts)
		if err == nil {
			resp = r
			return nil
		}
		var upErr *domain.UpstreamError
		if errors.As(err, &upErr) && upErr.Retryable() && ctx.Err() == nil {
			f.logger.Warn("route fetch failed, will retry",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, f.maxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) && ctx.Err() != nil {
			return nil, &domain.UpstreamError{Kind: domain.UpstreamTransport, Err: err}
		}
		return nil, err
	}
	return resp, nil
}
