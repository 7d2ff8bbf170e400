package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/auth"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/middleware"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/response"
)

// AdminRouteHandler handles admin HTTP requests for route-run statistics.
type AdminRouteHandler struct {
	service *application.RouteService
	logger  *zap.Logger
}

// NewAdminRouteHandler creates a new AdminRouteHandler.
func NewAdminRouteHandler(service *application.RouteService, logger *zap.Logger) *AdminRouteHandler {
	return &AdminRouteHandler{service: service, logger: logger}
}

// RegisterRoutes registers admin route-run routes.
func (h *AdminRouteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/routes/runs", h.ListRuns)
		admin.GET("/stats/routes", h.RouteStats)
	}
}

// ListRuns handles GET /api/v1/admin/routes/runs. ?status= narrows the list to
// one outcome.
func (h *AdminRouteHandler) ListRuns(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "user not authenticated")
		return
	}

	var status route.RouteStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := route.ParseRouteStatus(raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		status = parsed
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	runs, total, err := h.service.ListRouteRuns(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("admin listed route runs",
		zap.String("admin_id", adminID.String()),
		zap.String("status", status.String()),
		zap.Int("page", page),
	)
	response.Paginated(c, runs, total, page, limit)
}

// RouteStats handles GET /api/v1/admin/stats/routes.
func (h *AdminRouteHandler) RouteStats(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "user not authenticated")
		return
	}

	stats, err := h.service.GetRouteStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("admin read route stats", zap.String("admin_id", adminID.String()))
	response.Success(c, stats)
}
