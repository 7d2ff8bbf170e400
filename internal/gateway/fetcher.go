// Package gateway issues street-route requests to the road-routing provider and
// normalizes the answer, whichever wire protocol the provider speaks.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

const (
	// ProviderDirections selects the legacy query-string Directions API.
	ProviderDirections = "directions"
	// ProviderRoutes selects the JSON Routes API v2.
	ProviderRoutes = "routes"

	// TravelModeDriving is the only travel mode vans use.
	TravelModeDriving = "driving"

	// DefaultTimeout bounds a single provider call when none is configured.
	DefaultTimeout = 10 * time.Second

	// APIKeyField names the credential in configuration errors.
	APIKeyField = "GOOGLE_MAPS_API_KEY"

	httpMaxIdleConns    = 20
	httpIdleConnTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 8 << 20

	// maxErrorBodyBytes caps how much of an error body ends up in an error message.
	maxErrorBodyBytes = 512

	metersPerKm      = 1000.0
	secondsPerMinute = 60.0
)

// Options configures a single route request. Alternatives are never requested and
// intermediate waypoints are never reordered by the provider.
type Options struct {
	TravelMode   string
	Language     string
	Region       string
	TrafficAware bool
}

// DefaultOptions returns driving directions in Spanish, biased to Chile.
func DefaultOptions() Options {
	return Options{
		TravelMode: TravelModeDriving,
		Language:   "es",
		Region:     "CL",
	}
}

// RouteResponse is the provider-independent result of a route request.
type RouteResponse struct {
	EncodedPolyline string
	DistanceKm      float64
	DurationMin     float64
	Summary         string
}

// RouteFetcher fetches one street route for an ordered waypoint list. The first
// waypoint is the origin, the last the destination, the rest intermediates in the
// supplied order.
type RouteFetcher interface {
	FetchRoute(ctx context.Context, waypoints []route.Waypoint, opts Options) (*RouteResponse, error)
}

// NewFetcher returns the RouteFetcher strategy registered under provider.
func NewFetcher(provider, apiKey string, timeout time.Duration, logger *zap.Logger) (RouteFetcher, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderDirections:
		return NewDirectionsFetcher(apiKey, timeout, logger), nil
	case ProviderRoutes:
		return NewRoutesFetcher(apiKey, timeout, logger), nil
	default:
		return nil, domain.NewConfigError("ROUTING_PROVIDER", fmt.Sprintf("unknown provider %q", provider))
	}
}

// newHTTPClient returns a pooled, traced client. Deadlines come from the request
// context. attach adds the credential below the tracing layer, so spans never see it.
func newHTTPClient(attach func(*http.Request), opts ...otelhttp.Option) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(credentialTransport{base: transport, attach: attach}, opts...),
	}
}

// credentialTransport adds the provider credential to a copy of each outgoing request.
type credentialTransport struct {
	base   http.RoundTripper
	attach func(*http.Request)
}

func (t credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	t.attach(out)
	return t.base.RoundTrip(out)
}

func checkRequest(apiKey string, waypoints []route.Waypoint, opts Options) error {
	if apiKey == "" {
		return domain.NewConfigError(APIKeyField, "required but not set")
	}
	if len(waypoints) < route.MinWaypoints {
		return domain.NewValidationError(fmt.Sprintf("route needs at least %d waypoints, got %d", route.MinWaypoints, len(waypoints)))
	}
	for i, w := range waypoints {
		if !w.InRange() {
			return domain.NewValidationError(fmt.Sprintf("waypoint %d out of range: lat %v, lng %v", i, w.Lat, w.Lng))
		}
	}
	if opts.TravelMode != "" && opts.TravelMode != TravelModeDriving {
		return domain.NewValidationError(fmt.Sprintf("unsupported travel mode %q", opts.TravelMode))
	}
	return nil
}

// transportError wraps a failed round trip. url.Error is unwrapped so request URLs,
// which may carry the credential, never reach logs or callers.
func transportError(err error) *domain.UpstreamError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &domain.UpstreamError{Kind: domain.UpstreamTransport, Err: err}
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes] + "..."
	}
	return s
}

func missingFields(fields ...string) *domain.UpstreamError {
	return &domain.UpstreamError{
		Kind:    domain.UpstreamPayload,
		Message: "missing fields: " + strings.Join(fields, ", "),
	}
}

func formatLatLng(w route.Waypoint) string {
	return strconv.FormatFloat(w.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(w.Lng, 'f', -1, 64)
}

func metersToKm(m float64) float64 { return m / metersPerKm }

func secondsToMin(s float64) float64 { return s / secondsPerMinute }

// parseDurationSeconds parses a provider duration token such as "900s" or "12.5s".
func parseDurationSeconds(s string) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty duration string")
	}
	if s[len(s)-1] != 's' {
		return 0, fmt.Errorf("expected duration ending in 's', got %q", s)
	}
	numStr := s[:len(s)-1]
	if len(numStr) == 0 {
		return 0, fmt.Errorf("no number before 's' in %q", s)
	}
	for _, ch := range numStr {
		if (ch < '0' || ch > '9') && ch != '.' {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	}
	seconds, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return seconds, nil
}
