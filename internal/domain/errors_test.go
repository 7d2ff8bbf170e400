package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamError_Messages(t *testing.T) {
	cases := []struct {
		err  *UpstreamError
		want string
	}{
		{&UpstreamError{Kind: UpstreamStatus, StatusCode: 503, Message: "unavailable"}, "upstream error: status 503: unavailable"},
		{&UpstreamError{Kind: UpstreamProvider, ProviderStatus: "ZERO_RESULTS"}, "upstream error: provider status ZERO_RESULTS"},
		{&UpstreamError{Kind: UpstreamProvider, ProviderStatus: "REQUEST_DENIED", Message: "bad key"}, "upstream error: provider status REQUEST_DENIED: bad key"},
		{&UpstreamError{Kind: UpstreamTransport, Err: errors.New("i/o timeout")}, "upstream error: transport: i/o timeout"},
		{&UpstreamError{Kind: UpstreamPayload, Message: "missing fields: duration"}, "upstream error: missing fields: duration"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestUpstreamError_Retryable(t *testing.T) {
	assert.True(t, (&UpstreamError{Kind: UpstreamTransport}).Retryable())
	for _, k := range []UpstreamKind{UpstreamStatus, UpstreamProvider, UpstreamPayload} {
		assert.False(t, (&UpstreamError{Kind: k}).Retryable(), k)
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("van-1: %w", &UpstreamError{Kind: UpstreamTransport, Err: cause})
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsValidationError(fmt.Errorf("wrap: %w", NewValidationError("x"))))
	assert.False(t, IsValidationError(NewConfigError("F", "x")))
	assert.True(t, IsConfigError(NewConfigError("GOOGLE_MAPS_API_KEY", "required but not set")))
	assert.Equal(t, `config error: field "GOOGLE_MAPS_API_KEY": required but not set`, NewConfigError("GOOGLE_MAPS_API_KEY", "required but not set").Error())
}
