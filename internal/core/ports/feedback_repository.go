package ports

import (
	"context"
	"time"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// FeedbackFilter is a conjunction over the optional fields. Empty means no
// constraint; the service layer always sets at least one of them.
type FeedbackFilter struct {
	EmployeeID string
	ManagerID  string
}

// FeedbackPatch carries the mutable content fields. Nil means unchanged.
type FeedbackPatch struct {
	Strengths      *string
	AreasToImprove *string
	Sentiment      *domain.Sentiment
	Tags           *[]string
	Comments       *string
}

// Empty reports whether the patch changes nothing.
func (p FeedbackPatch) Empty() bool {
	return p.Strengths == nil && p.AreasToImprove == nil && p.Sentiment == nil &&
		p.Tags == nil && p.Comments == nil
}

// FeedbackRepository defines persistence operations for feedback records.
// Missing records surface as domain.ErrFeedbackNotFound; driver failures are
// classified as domain.ErrTimeout or domain.ErrUnavailable.
type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	FindByID(ctx context.Context, id string) (*domain.Feedback, error)
	// List returns every record matching filter, newest first.
	List(ctx context.Context, filter FeedbackFilter) ([]*domain.Feedback, error)
	// Update applies patch only if the stored version still equals
	// expectedVersion, bumping the version. A stale version yields
	// domain.ErrVersionMismatch.
	Update(ctx context.Context, id string, expectedVersion int64, patch FeedbackPatch, at time.Time) (*domain.Feedback, error)
	// Acknowledge atomically flips acknowledged to true and stamps
	// acknowledged_at. An already acknowledged record is returned unchanged.
	Acknowledge(ctx context.Context, id string, at time.Time) (*domain.Feedback, error)
	Delete(ctx context.Context, id string) error
}
