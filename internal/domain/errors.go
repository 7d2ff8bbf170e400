// Package domain holds the error taxonomy shared by every layer of the routing service.
package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports input that the caller must fix. It is never retried.
type ValidationError struct {
	Message string
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// ConfigError reports a missing or invalid configuration value. An operator must fix it.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// UpstreamKind classifies how the routing provider failed.
type UpstreamKind string

const (
	// UpstreamStatus is a non-success HTTP status from the provider.
	UpstreamStatus UpstreamKind = "status"
	// UpstreamProvider is a non-success application status inside a 200 response body.
	UpstreamProvider UpstreamKind = "provider"
	// UpstreamTransport is a network, timeout or cancellation failure.
	UpstreamTransport UpstreamKind = "transport"
	// UpstreamPayload is a response that could not be parsed or lacks required fields.
	UpstreamPayload UpstreamKind = "payload"
)

// UpstreamError reports a failed call to the road-routing provider.
type UpstreamError struct {
	Kind           UpstreamKind
	StatusCode     int
	ProviderStatus string
	Message        string
	Err            error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case UpstreamStatus:
		return fmt.Sprintf("upstream error: status %d: %s", e.StatusCode, e.Message)
	case UpstreamProvider:
		if e.Message == "" {
			return fmt.Sprintf("upstream error: provider status %s", e.ProviderStatus)
		}
		return fmt.Sprintf("upstream error: provider status %s: %s", e.ProviderStatus, e.Message)
	case UpstreamTransport:
		return fmt.Sprintf("upstream error: transport: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("upstream error: %s: %v", e.Message, e.Err)
		}
		return "upstream error: " + e.Message
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call could succeed. Only transport
// failures qualify; provider rejections are final.
func (e *UpstreamError) Retryable() bool {
	return e.Kind == UpstreamTransport
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
