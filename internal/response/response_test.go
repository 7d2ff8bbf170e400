package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/polyline"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", domain.NewValidationError("need 2 waypoints"), http.StatusBadRequest, "need 2 waypoints"},
		{"wrapped validation", fmt.Errorf("street route: %w", domain.NewValidationError("bad lat")), http.StatusBadRequest, "bad lat"},
		{"config", domain.NewConfigError("GOOGLE_MAPS_API_KEY", "required but not set"), http.StatusInternalServerError, "server configuration error"},
		{"upstream", &domain.UpstreamError{Kind: domain.UpstreamProvider, ProviderStatus: "ZERO_RESULTS"}, http.StatusBadGateway, "upstream error: provider status ZERO_RESULTS"},
		{"decode", &polyline.DecodeError{Offset: 3, Reason: "input ends inside a 5-bit group"}, http.StatusBadGateway, "polyline: decode at offset 3: input ends inside a 5-bit group"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := StatusFor(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}
}

func TestError_WritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, domain.NewConfigError("GOOGLE_MAPS_API_KEY", "required but not set"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "GOOGLE_MAPS_API_KEY")

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "server configuration error", body.Error)
}

func TestPaginated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []int{1, 2}, 41, 2, 20)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, int64(41), body.Meta.Total)
}
