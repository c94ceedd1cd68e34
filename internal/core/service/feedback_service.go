package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/api/metrics"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/pkg/ids"
)

var (
	errManagerOnly   = fmt.Errorf("%w: only managers can submit feedback", domain.ErrForbidden)
	errAuthorOnly    = fmt.Errorf("%w: only the authoring manager can change this feedback", domain.ErrForbidden)
	errRecipientOnly = fmt.Errorf("%w: only the recipient can acknowledge this feedback", domain.ErrForbidden)
)

// FeedbackService is the single enforcement point for who may create, see,
// edit, acknowledge and delete feedback records.
type FeedbackService struct {
	repo       ports.FeedbackRepository
	directory  ports.UserDirectory
	serializer ports.RecordSerializer
	timeout    time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// FeedbackServiceConfig bundles the collaborators of FeedbackService.
type FeedbackServiceConfig struct {
	Repo       ports.FeedbackRepository
	Directory  ports.UserDirectory
	Serializer ports.RecordSerializer // optional; mutations run inline when nil
	Timeout    time.Duration          // bound on directory calls
	Logger     zerolog.Logger
}

func NewFeedbackService(cfg FeedbackServiceConfig) *FeedbackService {
	return &FeedbackService{
		repo:       cfg.Repo,
		directory:  cfg.Directory,
		serializer: cfg.Serializer,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateFeedback records feedback from a manager for one of their direct reports.
func (s *FeedbackService) CreateFeedback(ctx context.Context, p domain.Principal, in ports.CreateFeedbackInput) (*domain.FeedbackView, error) {
	fb, employee, err := s.create(ctx, p, in)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create", domain.Kind(err)).Inc()
		return nil, err
	}

	metrics.FeedbackCreatedTotal.WithLabelValues(string(fb.Sentiment)).Inc()
	s.logger.Info().
		Str("feedback_id", fb.ID).
		Str("manager_id", fb.ManagerID).
		Str("employee_id", fb.EmployeeID).
		Str("sentiment", string(fb.Sentiment)).
		Msg("feedback created")

	names := newNameCache(s)
	names.put(employee)
	return names.view(ctx, fb), nil
}

func (s *FeedbackService) create(ctx context.Context, p domain.Principal, in ports.CreateFeedbackInput) (*domain.Feedback, *domain.User, error) {
	if !p.Valid() {
		return nil, nil, domain.ErrUnauthenticated
	}
	if !p.IsManager() {
		return nil, nil, errManagerOnly
	}
	if !ids.Valid(in.EmployeeID) {
		return nil, nil, domain.Invalid("employee_id must be a valid id")
	}

	employee, err := bounded(ctx, s.timeout, func(ctx context.Context) (*domain.User, error) {
		return s.directory.GetUserByID(ctx, in.EmployeeID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotDirectReport
		}
		return nil, nil, fmt.Errorf("create feedback: resolve employee: %w", err)
	}
	if !employee.IsDirectReportOf(p.UserID) {
		return nil, nil, domain.ErrNotDirectReport
	}

	strengths := strings.TrimSpace(in.Strengths)
	if strengths == "" {
		return nil, nil, domain.Invalid("strengths is required")
	}
	areas := strings.TrimSpace(in.AreasToImprove)
	if areas == "" {
		return nil, nil, domain.Invalid("areas_to_improve is required")
	}
	sentiment, err := domain.ParseSentiment(in.Sentiment)
	if err != nil {
		return nil, nil, err
	}
	tags, err := domain.ParseTags(in.Tags)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	fb := &domain.Feedback{
		ID:             ids.New(),
		EmployeeID:     employee.ID,
		ManagerID:      p.UserID,
		Strengths:      strengths,
		AreasToImprove: areas,
		Sentiment:      sentiment,
		Tags:           tags,
		Comments:       strings.TrimSpace(in.Comments),
		Acknowledged:   false,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		s.logger.Error().Err(err).Str("employee_id", employee.ID).Msg("failed to create feedback")
		return nil, nil, fmt.Errorf("create feedback: %w", err)
	}
	return fb, employee, nil
}

// ListFeedback returns the records visible to the caller. The caller's own
// scope is always applied on top of the supplied filter.
func (s *FeedbackService) ListFeedback(ctx context.Context, p domain.Principal, in ports.ListFeedbackInput) ([]*domain.FeedbackView, error) {
	filter, empty, err := scopeFilter(p, in)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list", domain.Kind(err)).Inc()
		return nil, err
	}
	if empty {
		return []*domain.FeedbackView{}, nil
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list", domain.Kind(err)).Inc()
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return newNameCache(s).views(ctx, records), nil
}

// scopeFilter intersects the caller-supplied filter with the caller's scope.
// empty is true when the intersection can match nothing.
func scopeFilter(p domain.Principal, in ports.ListFeedbackInput) (filter ports.FeedbackFilter, empty bool, err error) {
	if !p.Valid() {
		return filter, false, domain.ErrUnauthenticated
	}
	if in.EmployeeID != "" && !ids.Valid(in.EmployeeID) {
		return filter, false, domain.Invalid("employee_id must be a valid id")
	}
	if in.ManagerID != "" && !ids.Valid(in.ManagerID) {
		return filter, false, domain.Invalid("manager_id must be a valid id")
	}

	filter = ports.FeedbackFilter{EmployeeID: in.EmployeeID, ManagerID: in.ManagerID}
	switch p.Role {
	case domain.RoleManager:
		if in.ManagerID != "" && in.ManagerID != p.UserID {
			return filter, true, nil
		}
		filter.ManagerID = p.UserID
	case domain.RoleEmployee:
		if in.EmployeeID != "" && in.EmployeeID != p.UserID {
			return filter, true, nil
		}
		filter.EmployeeID = p.UserID
	}
	return filter, false, nil
}

// GetFeedback returns a record to its author or subject. Everyone else gets
// domain.ErrFeedbackNotFound so existence is never leaked.
func (s *FeedbackService) GetFeedback(ctx context.Context, p domain.Principal, id string) (*domain.FeedbackView, error) {
	fb, err := s.loadVisible(ctx, p, id)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("get", domain.Kind(err)).Inc()
		return nil, err
	}
	return newNameCache(s).view(ctx, fb), nil
}

// UpdateFeedback applies a content patch on behalf of the authoring manager.
func (s *FeedbackService) UpdateFeedback(ctx context.Context, p domain.Principal, id string, in ports.UpdateFeedbackInput) (*domain.FeedbackView, error) {
	var updated *domain.Feedback
	err := s.serialize(ctx, id, func(ctx context.Context) error {
		fb, err := s.loadVisible(ctx, p, id)
		if err != nil {
			return err
		}
		if !fb.IsAuthor(p) {
			return errAuthorOnly
		}
		patch, err := buildPatch(in)
		if err != nil {
			return err
		}
		if patch.Empty() {
			updated = fb
			return nil
		}
		updated, err = s.repo.Update(ctx, id, fb.Version, patch, s.now())
		if err != nil {
			return fmt.Errorf("update feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update", domain.Kind(err)).Inc()
		return nil, err
	}

	s.logger.Info().Str("feedback_id", id).Int64("version", updated.Version).Msg("feedback updated")
	return newNameCache(s).view(ctx, updated), nil
}

// buildPatch validates the patch field by field. Identity and
// acknowledgment fields are never writable through this path.
func buildPatch(in ports.UpdateFeedbackInput) (ports.FeedbackPatch, error) {
	var patch ports.FeedbackPatch
	switch {
	case in.EmployeeID != nil:
		return patch, fmt.Errorf("%w: employee_id", domain.ErrImmutableField)
	case in.ManagerID != nil:
		return patch, fmt.Errorf("%w: manager_id", domain.ErrImmutableField)
	case in.CreatedAt != nil:
		return patch, fmt.Errorf("%w: created_at", domain.ErrImmutableField)
	case in.Acknowledged != nil:
		return patch, fmt.Errorf("%w: acknowledged (use the acknowledge operation)", domain.ErrImmutableField)
	}

	if in.Strengths != nil {
		v := strings.TrimSpace(*in.Strengths)
		if v == "" {
			return patch, domain.Invalid("strengths cannot be empty")
		}
		patch.Strengths = &v
	}
	if in.AreasToImprove != nil {
		v := strings.TrimSpace(*in.AreasToImprove)
		if v == "" {
			return patch, domain.Invalid("areas_to_improve cannot be empty")
		}
		patch.AreasToImprove = &v
	}
	if in.Sentiment != nil {
		v, err := domain.ParseSentiment(*in.Sentiment)
		if err != nil {
			return patch, err
		}
		patch.Sentiment = &v
	}
	if in.Tags != nil {
		v, err := domain.ParseTags(*in.Tags)
		if err != nil {
			return patch, err
		}
		patch.Tags = &v
	}
	if in.Comments != nil {
		v := strings.TrimSpace(*in.Comments)
		patch.Comments = &v
	}
	return patch, nil
}

// AcknowledgeFeedback moves a record from Pending to Acknowledged on behalf
// of its subject. Acknowledging twice succeeds without changing anything.
func (s *FeedbackService) AcknowledgeFeedback(ctx context.Context, p domain.Principal, id string) (*domain.FeedbackView, error) {
	var (
		result  *domain.Feedback
		changed bool
	)
	err := s.serialize(ctx, id, func(ctx context.Context) error {
		fb, err := s.loadVisible(ctx, p, id)
		if err != nil {
			return err
		}
		if !fb.IsSubject(p) {
			return errRecipientOnly
		}
		if _, changed = fb.AckState().Acknowledge(); !changed {
			result = fb
			return nil
		}
		result, err = s.repo.Acknowledge(ctx, id, s.now())
		if err != nil {
			return fmt.Errorf("acknowledge feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("acknowledge", domain.Kind(err)).Inc()
		return nil, err
	}

	if changed {
		metrics.FeedbackAcknowledgedTotal.WithLabelValues("transitioned").Inc()
		s.logger.Info().Str("feedback_id", id).Str("employee_id", p.UserID).Msg("feedback acknowledged")
	} else {
		metrics.FeedbackAcknowledgedTotal.WithLabelValues("noop").Inc()
		s.logger.Debug().Str("feedback_id", id).Msg("feedback already acknowledged")
	}
	return newNameCache(s).view(ctx, result), nil
}

// DeleteFeedback removes a record on behalf of its author.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, p domain.Principal, id string) error {
	err := s.serialize(ctx, id, func(ctx context.Context) error {
		fb, err := s.loadVisible(ctx, p, id)
		if err != nil {
			return err
		}
		if !fb.IsAuthor(p) {
			return errAuthorOnly
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("delete", domain.Kind(err)).Inc()
		return err
	}

	s.logger.Info().Str("feedback_id", id).Str("manager_id", p.UserID).Msg("feedback deleted")
	return nil
}

// loadVisible resolves existence first, then visibility. Both failures look
// the same to the caller.
func (s *FeedbackService) loadVisible(ctx context.Context, p domain.Principal, id string) (*domain.Feedback, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	if !ids.Valid(id) {
		return nil, domain.ErrFeedbackNotFound
	}
	fb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if !fb.VisibleTo(p) {
		return nil, domain.ErrFeedbackNotFound
	}
	return fb, nil
}

func (s *FeedbackService) serialize(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.serializer == nil {
		return fn(ctx)
	}
	return s.serializer.Do(ctx, id, fn)
}

// nameCache resolves display names for one request, looking each user up at
// most once. Lookups are best effort: a missing user leaves the name empty.
type nameCache struct {
	directory ports.UserDirectory
	timeout   time.Duration
	logger    zerolog.Logger
	names     map[string]string
}

func newNameCache(s *FeedbackService) *nameCache {
	return &nameCache{
		directory: s.directory,
		timeout:   s.timeout,
		logger:    s.logger,
		names:     make(map[string]string),
	}
}

func (c *nameCache) put(u *domain.User) {
	if u != nil {
		c.names[u.ID] = u.FullName()
	}
}

func (c *nameCache) name(ctx context.Context, id string) string {
	if n, ok := c.names[id]; ok {
		return n
	}
	u, err := bounded(ctx, c.timeout, func(ctx context.Context) (*domain.User, error) {
		return c.directory.GetUserByID(ctx, id)
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("user_id", id).Msg("display name unavailable")
		c.names[id] = ""
		return ""
	}
	c.put(u)
	return c.names[id]
}

func (c *nameCache) view(ctx context.Context, fb *domain.Feedback) *domain.FeedbackView {
	return &domain.FeedbackView{
		Feedback:     *fb,
		ManagerName:  c.name(ctx, fb.ManagerID),
		EmployeeName: c.name(ctx, fb.EmployeeID),
	}
}

func (c *nameCache) views(ctx context.Context, records []*domain.Feedback) []*domain.FeedbackView {
	out := make([]*domain.FeedbackView, 0, len(records))
	for _, fb := range records {
		out = append(out, c.view(ctx, fb))
	}
	return out
}
