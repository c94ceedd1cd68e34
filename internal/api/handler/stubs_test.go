package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/feedbackflow/feedback-system/internal/api/middleware"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

var (
	managerPrincipal  = domain.Principal{UserID: "mgr-1", Role: domain.RoleManager}
	employeePrincipal = domain.Principal{UserID: "emp-1", Role: domain.RoleEmployee}
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	logoutFn   func(ctx context.Context, token string) error
	meFn       func(ctx context.Context, p domain.Principal) (*domain.User, error)
}

func (s *stubAuthService) ResolvePrincipal(context.Context, string) (domain.Principal, error) {
	return domain.Principal{}, domain.ErrUnauthenticated
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubAuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.meFn(ctx, p)
}

type stubFeedbackService struct {
	createFn func(p domain.Principal, in ports.CreateFeedbackInput) (*domain.FeedbackView, error)
	listFn   func(p domain.Principal, in ports.ListFeedbackInput) ([]*domain.FeedbackView, error)
	getFn    func(p domain.Principal, id string) (*domain.FeedbackView, error)
	updateFn func(p domain.Principal, id string, in ports.UpdateFeedbackInput) (*domain.FeedbackView, error)
	ackFn    func(p domain.Principal, id string) (*domain.FeedbackView, error)
	deleteFn func(p domain.Principal, id string) error
}

func (s *stubFeedbackService) CreateFeedback(_ context.Context, p domain.Principal, in ports.CreateFeedbackInput) (*domain.FeedbackView, error) {
	return s.createFn(p, in)
}

func (s *stubFeedbackService) ListFeedback(_ context.Context, p domain.Principal, in ports.ListFeedbackInput) ([]*domain.FeedbackView, error) {
	return s.listFn(p, in)
}

func (s *stubFeedbackService) GetFeedback(_ context.Context, p domain.Principal, id string) (*domain.FeedbackView, error) {
	return s.getFn(p, id)
}

func (s *stubFeedbackService) UpdateFeedback(_ context.Context, p domain.Principal, id string, in ports.UpdateFeedbackInput) (*domain.FeedbackView, error) {
	return s.updateFn(p, id, in)
}

func (s *stubFeedbackService) AcknowledgeFeedback(_ context.Context, p domain.Principal, id string) (*domain.FeedbackView, error) {
	return s.ackFn(p, id)
}

func (s *stubFeedbackService) DeleteFeedback(_ context.Context, p domain.Principal, id string) error {
	return s.deleteFn(p, id)
}

type stubStatsService struct {
	statsFn  func(p domain.Principal) (*domain.DashboardStats, error)
	recentFn func(p domain.Principal, limit int) ([]*domain.FeedbackView, error)
	teamFn   func(p domain.Principal) ([]domain.TeamMemberOverview, error)
}

func (s *stubStatsService) DashboardStats(_ context.Context, p domain.Principal) (*domain.DashboardStats, error) {
	return s.statsFn(p)
}

func (s *stubStatsService) RecentFeedback(_ context.Context, p domain.Principal, limit int) ([]*domain.FeedbackView, error) {
	return s.recentFn(p, limit)
}

func (s *stubStatsService) TeamOverview(_ context.Context, p domain.Principal) ([]domain.TeamMemberOverview, error) {
	return s.teamFn(p)
}

type stubUserService struct {
	getFn    func(p domain.Principal, id string) (*domain.User, error)
	teamFn   func(p domain.Principal, managerID string) ([]*domain.User, error)
	assignFn func(p domain.Principal, managerID, employeeID string) (*domain.User, error)
}

func (s *stubUserService) GetUser(_ context.Context, p domain.Principal, id string) (*domain.User, error) {
	return s.getFn(p, id)
}

func (s *stubUserService) GetTeamMembers(_ context.Context, p domain.Principal, managerID string) ([]*domain.User, error) {
	return s.teamFn(p, managerID)
}

func (s *stubUserService) AssignTeamMember(_ context.Context, p domain.Principal, managerID, employeeID string) (*domain.User, error) {
	return s.assignFn(p, managerID, employeeID)
}

// newContext builds an echo context with the validator registered and, when
// p is non-nil, the principal the Auth middleware would have injected.
func newContext(method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(middleware.PrincipalKey, *p)
		c.Set(middleware.RoleKey, string(p.Role))
	}
	return c, rec
}
