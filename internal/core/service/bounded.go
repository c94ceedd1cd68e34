package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// DefaultCollaboratorTimeout bounds directory and resolver calls when the
// caller configures none.
const DefaultCollaboratorTimeout = 3 * time.Second

// bounded runs call under a deadline of d and reports an exceeded deadline as
// domain.ErrTimeout.
func bounded[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		d = DefaultCollaboratorTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := call(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return v, fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return v, err
}
