package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

// DashboardHandler serves the derived read models.
type DashboardHandler struct {
	stats ports.StatsService
}

func NewDashboardHandler(stats ports.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Stats handles GET /api/v1/dashboard/stats.
//
// @Summary      Dashboard counters for the caller
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DashboardStats
// @Failure      401  {object}  errorResponse
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	stats, err := h.stats.DashboardStats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Recent handles GET /api/v1/dashboard/recent.
//
// @Summary      Most recent feedback visible to the caller
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Number of records (1-20, default 5)"
// @Success      200    {array}   domain.FeedbackView
// @Failure      400    {object}  errorResponse
// @Router       /dashboard/recent [get]
func (h *DashboardHandler) Recent(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return domain.Invalid("limit must be an integer")
		}
	}

	items, err := h.stats.RecentFeedback(c.Request().Context(), p, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// Team handles GET /api/v1/dashboard/team.
//
// @Summary      Per-member acknowledgment counts for a manager's team
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  teamOverviewResponse
// @Failure      403  {object}  errorResponse
// @Router       /dashboard/team [get]
func (h *DashboardHandler) Team(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	members, err := h.stats.TeamOverview(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, teamOverviewResponse{Members: members})
}
