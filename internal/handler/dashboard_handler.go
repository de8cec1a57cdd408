package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"govichain/internal/errors"
	"govichain/internal/service"
)

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	statsService service.StatsService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(statsService service.StatsService) *DashboardHandler {
	return &DashboardHandler{statsService: statsService}
}

// Stats godoc
// @Summary Get overall dashboard statistics
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.statsService.Dashboard(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, stats)
}

// MyStats godoc
// @Summary Get role-scoped statistics for the current user
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.MyStats
// @Router /dashboard/my-stats [get]
func (h *DashboardHandler) MyStats(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	stats, err := h.statsService.MyStats(c.Request().Context(), principal)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, stats)
}
