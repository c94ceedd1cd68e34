package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/api/middleware"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware. A
// missing or incomplete principal means the route was mounted without Auth,
// so the request is rejected before any service call.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(middleware.PrincipalKey).(domain.Principal)
	if !ok || !p.Valid() {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// bind decodes and validates the request body. Malformed JSON is reported as
// a bad payload; validation failures wrap domain.ErrInvalidInput.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
