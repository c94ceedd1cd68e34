package handler

import (
	"time"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// --- Users ---

type registerRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Role      string `json:"role"       validate:"required,oneof=manager employee"`
}

type assignTeamMemberRequest struct {
	ManagerID  string `json:"manager_id"  validate:"required"`
	EmployeeID string `json:"employee_id" validate:"required"`
}

// --- Feedback ---

// createFeedbackRequest only requires the subject here. Content fields are
// checked by the service after the direct-report rule.
type createFeedbackRequest struct {
	EmployeeID     string `json:"employee_id" validate:"required"`
	Strengths      string `json:"strengths"`
	AreasToImprove string `json:"areas_to_improve"`
	Sentiment      string `json:"sentiment"`
	Tags           string `json:"tags"`
	Comments       string `json:"comments"`
}

// updateFeedbackRequest is a partial update. The identity fields are bound
// only so the service can reject attempts to change them.
type updateFeedbackRequest struct {
	Strengths      *string `json:"strengths"`
	AreasToImprove *string `json:"areas_to_improve"`
	Sentiment      *string `json:"sentiment"`
	Tags           *string `json:"tags"`
	Comments       *string `json:"comments"`

	EmployeeID   *string    `json:"employee_id"`
	ManagerID    *string    `json:"manager_id"`
	CreatedAt    *time.Time `json:"created_at"`
	Acknowledged *bool      `json:"acknowledged"`
}

type feedbackListResponse struct {
	Items []*domain.FeedbackView `json:"items"`
	Count int                    `json:"count"`
}

// --- Dashboard ---

type teamOverviewResponse struct {
	Members []domain.TeamMemberOverview `json:"members"`
}
