package route

import "fmt"

// RouteStatus describes how a van's route was obtained.
type RouteStatus string

const (
	// StatusOK means the coordinates are the street-snapped geometry from the provider.
	StatusOK RouteStatus = "ok"
	// StatusFallback means the coordinates are the original waypoints, unsnapped.
	StatusFallback RouteStatus = "fallback"
	// StatusError means the van could not be routed at all (invalid input or configuration).
	StatusError RouteStatus = "error"
)

// IsValid returns true if the status is a recognized route status.
func (s RouteStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusFallback, StatusError:
		return true
	}
	return false
}

// IsSnapped returns true if the coordinates follow the street network.
func (s RouteStatus) IsSnapped() bool {
	return s == StatusOK
}

// String returns the string representation of the status.
func (s RouteStatus) String() string {
	return string(s)
}

// ParseRouteStatus converts a string to a RouteStatus, returning an error if invalid.
func ParseRouteStatus(s string) (RouteStatus, error) {
	status := RouteStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid route status: %s", s)
	}
	return status, nil
}
