package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

// FeedbackHandler handles HTTP requests for the feedback lifecycle.
type FeedbackHandler struct {
	service ports.FeedbackService
}

func NewFeedbackHandler(service ports.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Create handles POST /api/v1/feedback.
//
// @Summary      Submit feedback for a direct report
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createFeedbackRequest  true  "Feedback draft"
// @Success      201   {object}  domain.FeedbackView
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      504   {object}  errorResponse
// @Router       /feedback [post]
func (h *FeedbackHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createFeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := h.service.CreateFeedback(c.Request().Context(), p, ports.CreateFeedbackInput{
		EmployeeID:     req.EmployeeID,
		Strengths:      req.Strengths,
		AreasToImprove: req.AreasToImprove,
		Sentiment:      req.Sentiment,
		Tags:           req.Tags,
		Comments:       req.Comments,
	})
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/v1/feedback/"+view.ID)
	return c.JSON(http.StatusCreated, view)
}

// List handles GET /api/v1/feedback.
//
// @Summary      List feedback visible to the caller
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        employee_id  query     string  false  "Filter by subject"
// @Param        manager_id   query     string  false  "Filter by author"
// @Success      200          {object}  feedbackListResponse
// @Failure      400          {object}  errorResponse
// @Router       /feedback [get]
func (h *FeedbackHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	items, err := h.service.ListFeedback(c.Request().Context(), p, ports.ListFeedbackInput{
		EmployeeID: c.QueryParam("employee_id"),
		ManagerID:  c.QueryParam("manager_id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feedbackListResponse{Items: items, Count: len(items)})
}

// Get handles GET /api/v1/feedback/:id.
//
// @Summary      Get a feedback record
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback ID"
// @Success      200  {object}  domain.FeedbackView
// @Failure      404  {object}  errorResponse
// @Router       /feedback/{id} [get]
func (h *FeedbackHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	view, err := h.service.GetFeedback(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Update handles PUT /api/v1/feedback/:id.
//
// @Summary      Update a feedback record
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Feedback ID"
// @Param        body  body      updateFeedbackRequest  true  "Fields to change"
// @Success      200   {object}  domain.FeedbackView
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /feedback/{id} [put]
func (h *FeedbackHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateFeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := h.service.UpdateFeedback(c.Request().Context(), p, c.Param("id"), ports.UpdateFeedbackInput{
		Strengths:      req.Strengths,
		AreasToImprove: req.AreasToImprove,
		Sentiment:      req.Sentiment,
		Tags:           req.Tags,
		Comments:       req.Comments,
		EmployeeID:     req.EmployeeID,
		ManagerID:      req.ManagerID,
		CreatedAt:      req.CreatedAt,
		Acknowledged:   req.Acknowledged,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Acknowledge handles PATCH /api/v1/feedback/:id/acknowledge. Repeating the
// call on an acknowledged record returns it unchanged.
//
// @Summary      Acknowledge received feedback
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback ID"
// @Success      200  {object}  domain.FeedbackView
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /feedback/{id}/acknowledge [patch]
func (h *FeedbackHandler) Acknowledge(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	view, err := h.service.AcknowledgeFeedback(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /api/v1/feedback/:id.
//
// @Summary      Delete a feedback record
// @Tags         feedback
// @Security     BearerAuth
// @Param        id   path  string  true  "Feedback ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /feedback/{id} [delete]
func (h *FeedbackHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteFeedback(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
