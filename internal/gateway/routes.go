package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

const (
	// routesAPIURL is the Routes API v2 endpoint.
	routesAPIURL = "https://routes.googleapis.com/directions/v2:computeRoutes"

	// routesFieldMask requests only duration, distance and geometry.
	routesFieldMask = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline"
)

// RoutesFetcher implements RouteFetcher with the Routes API v2.
type RoutesFetcher struct {
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	// apiURL is the Routes API endpoint. Overridable in tests.
	apiURL string
}

// NewRoutesFetcher creates a RoutesFetcher. An empty apiKey is accepted here and
// reported as a ConfigError on every fetch.
func NewRoutesFetcher(apiKey string, timeout time.Duration, logger *zap.Logger) *RoutesFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &RoutesFetcher{
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger,
		apiURL:  routesAPIURL,
	}
	f.httpClient = newHTTPClient(f.attachKey)
	return f
}

func (f *RoutesFetcher) attachKey(req *http.Request) {
	req.Header.Set("X-Goog-Api-Key", f.apiKey)
}

// FetchRoute calls computeRoutes and normalizes the first candidate.
func (f *RoutesFetcher) FetchRoute(ctx context.Context, waypoints []route.Waypoint, opts Options) (*RouteResponse, error) {
	if err := checkRequest(f.apiKey, waypoints, opts); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(buildRoutesRequest(waypoints, opts))
	if err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "marshal request", Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, f.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-FieldMask", routesFieldMask)

	f.logger.Debug("requesting routes",
		zap.Int("waypoints", len(waypoints)),
		zap.Bool("traffic_aware", opts.TrafficAware),
	)

	httpResp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	respBytes, err := readBody(httpResp)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, routesStatusError(httpResp.StatusCode, respBytes)
	}

	var apiResp routesAPIResponse
	if err := json.Unmarshal(respBytes, &apiResp); err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "unmarshal response", Err: err}
	}

	return normalizeRoutes(apiResp)
}

func buildRoutesRequest(waypoints []route.Waypoint, opts Options) routesAPIRequest {
	req := route.VanRouteRequest{Waypoints: waypoints}

	preference := "TRAFFIC_UNAWARE"
	if opts.TrafficAware {
		preference = "TRAFFIC_AWARE"
	}

	body := routesAPIRequest{
		Origin:                   toRoutesWaypoint(req.Origin()),
		Destination:              toRoutesWaypoint(req.Destination()),
		TravelMode:               "DRIVE",
		RoutingPreference:        preference,
		ComputeAlternativeRoutes: false,
		OptimizeWaypointOrder:    false,
		LanguageCode:             opts.Language,
		RegionCode:               strings.ToLower(opts.Region),
		Units:                    "METRIC",
	}
	for _, w := range req.Intermediates() {
		body.Intermediates = append(body.Intermediates, toRoutesWaypoint(w))
	}
	return body
}

func toRoutesWaypoint(w route.Waypoint) routesAPIWaypoint {
	return routesAPIWaypoint{
		Location: routesAPILocation{
			LatLng: routesAPILatLng{Latitude: w.Lat, Longitude: w.Lng},
		},
	}
}

// routesStatusError keeps the provider's error status when the body carries one.
func routesStatusError(statusCode int, body []byte) *domain.UpstreamError {
	upErr := &domain.UpstreamError{
		Kind:       domain.UpstreamStatus,
		StatusCode: statusCode,
		Message:    truncateBody(body),
	}
	var errBody routesAPIErrorBody
	if json.Unmarshal(body, &errBody) == nil && errBody.Error.Status != "" {
		upErr.ProviderStatus = errBody.Error.Status
		upErr.Message = fmt.Sprintf("%s: %s", errBody.Error.Status, errBody.Error.Message)
	}
	return upErr
}

// normalizeRoutes takes candidate 0 and converts meters and "<n>s" durations.
func normalizeRoutes(apiResp routesAPIResponse) (*RouteResponse, error) {
	if len(apiResp.Routes) == 0 {
		return nil, missingFields("routes")
	}
	r := apiResp.Routes[0]

	var missing []string
	if r.Polyline == nil || r.Polyline.EncodedPolyline == "" {
		missing = append(missing, "polyline.encodedPolyline")
	}
	if r.DistanceMeters == nil {
		missing = append(missing, "distanceMeters")
	}
	if r.Duration == nil || *r.Duration == "" {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		return nil, missingFields(missing...)
	}

	durationS, err := parseDurationSeconds(*r.Duration)
	if err != nil {
		return nil, &domain.UpstreamError{Kind: domain.UpstreamPayload, Message: "parse duration", Err: err}
	}

	return &RouteResponse{
		EncodedPolyline: r.Polyline.EncodedPolyline,
		DistanceKm:      metersToKm(*r.DistanceMeters),
		DurationMin:     secondsToMin(durationS),
	}, nil
}

// --- JSON types for the Routes API v2 ---

type routesAPIRequest struct {
	Origin                   routesAPIWaypoint   `json:"origin"`
	Destination              routesAPIWaypoint   `json:"destination"`
	Intermediates            []routesAPIWaypoint `json:"intermediates,omitempty"`
	TravelMode               string              `json:"travelMode"`
	RoutingPreference        string              `json:"routingPreference"`
	ComputeAlternativeRoutes bool                `json:"computeAlternativeRoutes"`
	OptimizeWaypointOrder    bool                `json:"optimizeWaypointOrder"`
	LanguageCode             string              `json:"languageCode,omitempty"`
	RegionCode               string              `json:"regionCode,omitempty"`
	Units                    string              `json:"units"`
}

type routesAPIWaypoint struct {
	Location routesAPILocation `json:"location"`
}

type routesAPILocation struct {
	LatLng routesAPILatLng `json:"latLng"`
}

type routesAPILatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routesAPIResponse struct {
	Routes []routesAPIRoute `json:"routes"`
}

type routesAPIRoute struct {
	DistanceMeters *float64           `json:"distanceMeters"`
	Duration       *string            `json:"duration"`
	Polyline       *routesAPIPolyline `json:"polyline"`
}

type routesAPIPolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}

type routesAPIErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
