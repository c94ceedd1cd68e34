package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

// UserHandler serves registration and directory reads.
type UserHandler struct {
	auth  ports.AuthService
	users ports.UserService
}

func NewUserHandler(auth ports.AuthService, users ports.UserService) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Get returns a single user the caller is allowed to see.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Team lists a manager's direct reports.
//
// @Summary      List team members
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        managerId  path      string  true  "Manager ID"
// @Success      200        {array}   domain.User
// @Failure      403        {object}  errorResponse
// @Router       /users/team/{managerId} [get]
func (h *UserHandler) Team(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	members, err := h.users.GetTeamMembers(c.Request().Context(), p, c.Param("managerId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// AssignTeamMember puts an unassigned employee on the manager's team.
//
// @Summary      Assign a team member
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      assignTeamMemberRequest  true  "Manager and employee to link"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/assign-team-member [post]
func (h *UserHandler) AssignTeamMember(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req assignTeamMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.AssignTeamMember(c.Request().Context(), p, req.ManagerID, req.EmployeeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
