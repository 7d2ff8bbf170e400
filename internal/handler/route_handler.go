package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/response"
)

const (
	batchSourceAPI = "api"
	formatGeoJSON  = "geojson"
	geoJSONMime    = "application/geo+json"
)

// StreetRouteRequest is the body of POST /api/v1/routes/street.
type StreetRouteRequest struct {
	Waypoints []route.Waypoint `json:"waypoints" binding:"required"`
}

// BatchRouteRequest is the body of POST /api/v1/routes/batch.
type BatchRouteRequest struct {
	Vans []route.VanRouteRequest `json:"vans" binding:"required,max=500"`
}

// RouteHandler handles HTTP requests for street-route resolution.
type RouteHandler struct {
	service *application.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// RegisterRoutes registers the route endpoints on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup) {
	routes := r.Group("/api/v1/routes")
	{
		routes.POST("/street", h.GetStreetRoute)
		routes.POST("/batch", h.ResolveBatch)
	}
}

// GetStreetRoute handles POST /api/v1/routes/street.
func (h *RouteHandler) GetStreetRoute(c *gin.Context) {
	var req StreetRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.GetStreetRoute(c.Request.Context(), req.Waypoints)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResolveBatch handles POST /api/v1/routes/batch. With ?format=geojson the
// batch is returned as a FeatureCollection.
func (h *RouteHandler) ResolveBatch(c *gin.Context) {
	var req BatchRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	batch := h.service.ResolveBatch(c.Request.Context(), batchSourceAPI, req.Vans)

	if c.Query("format") == formatGeoJSON {
		c.Header("Content-Type", geoJSONMime)
		c.JSON(http.StatusOK, application.ToFeatureCollection(batch))
		return
	}

	response.Success(c, batch)
}
