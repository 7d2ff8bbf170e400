// Package response writes the service's JSON envelopes and maps domain errors to
// HTTP status codes.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/polyline"
)

// Envelope is the standard response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 envelope around data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 envelope with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 envelope.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Success: false, Error: message})
}

// Unauthorized writes a 401 envelope.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Success: false, Error: message})
}

// Forbidden writes a 403 envelope.
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Envelope{Success: false, Error: message})
}

// Error maps err onto a status code and writes it. Configuration problems are
// reported generically so operator details stay in the logs.
func Error(c *gin.Context, err error) {
	status, message := StatusFor(err)
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}

// StatusFor returns the HTTP status and client-facing message for err.
func StatusFor(err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		configErr     *domain.ConfigError
		upstreamErr   *domain.UpstreamError
		decodeErr     *polyline.DecodeError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, "server configuration error"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, upstreamErr.Error()
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway, decodeErr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
