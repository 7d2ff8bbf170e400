package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// directionsAPIURL is the legacy Directions API endpoint.
const directionsAPIURL = "https://maps.googleapis.com/maps/api/directions/json"

// directionsStatusOK is the only body status that carries routes.
const directionsStatusOK = "OK"

// DirectionsFetcher implements RouteFetcher with the query-string Directions API.
type DirectionsFetcher struct {
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	// apiURL is the Directions API endpoint. Overridable in tests.
	apiURL string
}

// NewDirectionsFetcher creates a DirectionsFetcher. An empty apiKey is accepted
// here and reported as a ConfigError on every fetch.
func NewDirectionsFetcher(apiKey string, timeout time.Duration, logger *zap.Logger) *DirectionsFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &DirectionsFetcher{
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger,
		apiURL:  directionsAPIURL,
	}
	f.httpClient = newHTTPClient(f.attachKey)
	return f
}

// attachKey puts the credential in the query string of an outgoing request.
func (f *DirectionsFetcher) attachKey(req *http.Request) {
	q := req.URL.Query()
	q.Set("key", f.apiKey)
	req.URL.RawQuery = q.Encode()
}

// FetchRoute requests driving directions through every waypoint in order.
func (f *DirectionsFetcher) FetchRoute(ctx context.Context, waypoints []route.Waypoint, opts Options) (*RouteResponse, error) {
	if err := checkRequest(f.apiKey, waypoints, opts); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	reqURL := f.apiURL + "?" + f.buildQuery(waypoints, opts).Encode()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "create request", Err: err}
	}

	f.logger.Debug("requesting directions",
		zap.Int("waypoints", len(waypoints)),
		zap.Bool("traffic_aware", opts.TrafficAware),
	)

	httpResp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	body, err := readBody(httpResp)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{
			Kind:       domain.UpstreamStatus,
			StatusCode: httpResp.StatusCode,
			Message:    truncateBody(body),
		}
	}

	var apiResp directionsAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "unmarshal response", Err: err}
	}

	if apiResp.Status != directionsStatusOK {
		return nil, &domain.UpstreamError{
			Kind:           domain.UpstreamProvider,
			ProviderStatus: apiResp.Status,
			Message:        apiResp.ErrorMessage,
		}
	}

	return normalizeDirections(apiResp, opts)
}

// buildQuery encodes the request without the credential. Intermediates keep the
// supplied order and the provider is told not to optimize them.
func (f *DirectionsFetcher) buildQuery(waypoints []route.Waypoint, opts Options) url.Values {
	req := route.VanRouteRequest{Waypoints: waypoints}

	mode := opts.TravelMode
	if mode == "" {
		mode = TravelModeDriving
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(req.Origin()))
	params.Set("destination", formatLatLng(req.Destination()))
	params.Set("mode", mode)
	params.Set("alternatives", "false")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if opts.Region != "" {
		params.Set("region", strings.ToLower(opts.Region))
	}
	if opts.TrafficAware {
		params.Set("departure_time", "now")
	}

	if mid := req.Intermediates(); len(mid) > 0 {
		parts := make([]string, 0, len(mid)+1)
		parts = append(parts, "optimize:false")
		for _, w := range mid {
			parts = append(parts, formatLatLng(w))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	return params
}

// normalizeDirections takes candidate 0 and sums its legs.
func normalizeDirections(apiResp directionsAPIResponse, opts Options) (*RouteResponse, error) {
	if len(apiResp.Routes) == 0 {
		return nil, missingFields("routes")
	}
	r := apiResp.Routes[0]

	var missing []string
	if r.OverviewPolyline == nil || r.OverviewPolyline.Points == "" {
		missing = append(missing, "overview_polyline.points")
	}
	if len(r.Legs) == 0 {
		missing = append(missing, "legs")
	}

	var distanceM, durationS float64
	for _, leg := range r.Legs {
		if leg.Distance == nil || leg.Distance.Value == nil {
			missing = append(missing, "legs.distance.value")
			break
		}
		duration := leg.Duration
		if opts.TrafficAware && leg.DurationInTraffic != nil && leg.DurationInTraffic.Value != nil {
			duration = leg.DurationInTraffic
		}
		if duration == nil || duration.Value == nil {
			missing = append(missing, "legs.duration.value")
			break
		}
		distanceM += *leg.Distance.Value
		durationS += *duration.Value
	}
	if len(missing) > 0 {
		return nil, missingFields(missing...)
	}

	return &RouteResponse{
		EncodedPolyline: r.OverviewPolyline.Points,
		DistanceKm:      metersToKm(distanceM),
		DurationMin:     secondsToMin(durationS),
		Summary:         r.Summary,
	}, nil
}

// --- JSON types for the Directions API ---

type directionsAPIResponse struct {
	Status       string               `json:"status"`
	ErrorMessage string               `json:"error_message"`
	Routes       []directionsAPIRoute `json:"routes"`
}

type directionsAPIRoute struct {
	Summary          string                 `json:"summary"`
	OverviewPolyline *directionsAPIPolyline `json:"overview_polyline"`
	Legs             []directionsAPILeg     `json:"legs"`
}

type directionsAPIPolyline struct {
	Points string `json:"points"`
}

type directionsAPILeg struct {
	Distance          *directionsAPIValue `json:"distance"`
	Duration          *directionsAPIValue `json:"duration"`
	DurationInTraffic *directionsAPIValue `json:"duration_in_traffic"`
}

type directionsAPIValue struct {
	Text  string   `json:"text"`
	Value *float64 `json:"value"`
}
