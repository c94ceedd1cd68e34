package ports

import (
	"context"
	"time"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// CreateFeedbackInput is the draft a manager submits. Tags are in their
// comma-delimited transport form.
type CreateFeedbackInput struct {
	EmployeeID     string
	Strengths      string
	AreasToImprove string
	Sentiment      string
	Tags           string
	Comments       string
}

// UpdateFeedbackInput is a field-by-field patch. The identity fields are
// present only so that attempts to change them can be rejected.
type UpdateFeedbackInput struct {
	Strengths      *string
	AreasToImprove *string
	Sentiment      *string
	Tags           *string
	Comments       *string

	EmployeeID   *string
	ManagerID    *string
	CreatedAt    *time.Time
	Acknowledged *bool
}

// ListFeedbackInput carries the optional list filters supplied by the caller.
type ListFeedbackInput struct {
	EmployeeID string
	ManagerID  string
}

// FeedbackService defines the feedback lifecycle use cases.
type FeedbackService interface {
	CreateFeedback(ctx context.Context, principal domain.Principal, input CreateFeedbackInput) (*domain.FeedbackView, error)
	ListFeedback(ctx context.Context, principal domain.Principal, input ListFeedbackInput) ([]*domain.FeedbackView, error)
	GetFeedback(ctx context.Context, principal domain.Principal, id string) (*domain.FeedbackView, error)
	UpdateFeedback(ctx context.Context, principal domain.Principal, id string, input UpdateFeedbackInput) (*domain.FeedbackView, error)
	AcknowledgeFeedback(ctx context.Context, principal domain.Principal, id string) (*domain.FeedbackView, error)
	DeleteFeedback(ctx context.Context, principal domain.Principal, id string) error
}

// StatsService derives dashboard read models from the feedback store.
type StatsService interface {
	DashboardStats(ctx context.Context, principal domain.Principal) (*domain.DashboardStats, error)
	RecentFeedback(ctx context.Context, principal domain.Principal, limit int) ([]*domain.FeedbackView, error)
	TeamOverview(ctx context.Context, principal domain.Principal) ([]domain.TeamMemberOverview, error)
}

// RecordSerializer runs fn so that calls sharing a key never overlap.
type RecordSerializer interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
