package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

const feedbackColumns = `id, employee_id, manager_id, strengths, areas_to_improve, sentiment,
        tags, comments, acknowledged, acknowledged_at, version, created_at, updated_at`

// FeedbackRepository implements ports.FeedbackRepository on Postgres.
type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var (
		f         domain.Feedback
		sentiment string
	)
	if err := row.Scan(
		&f.ID,
		&f.EmployeeID,
		&f.ManagerID,
		&f.Strengths,
		&f.AreasToImprove,
		&sentiment,
		&f.Tags,
		&f.Comments,
		&f.Acknowledged,
		&f.AcknowledgedAt,
		&f.Version,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Sentiment = domain.Sentiment(sentiment)
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return &f, nil
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const query = `
        INSERT INTO feedback (id, employee_id, manager_id, strengths, areas_to_improve, sentiment,
            tags, comments, acknowledged, acknowledged_at, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		f.ID,
		f.EmployeeID,
		f.ManagerID,
		f.Strengths,
		f.AreasToImprove,
		string(f.Sentiment),
		tags,
		f.Comments,
		f.Acknowledged,
		f.AcknowledgedAt,
		f.Version,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return classify("insert feedback", err)
	}
	return nil
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	f, err := scanFeedback(r.pool.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, classify("find feedback", err)
	}
	return f, nil
}

func (r *FeedbackRepository) List(ctx context.Context, filter ports.FeedbackFilter) ([]*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clauses := []string{"TRUE"}
	args := []any{}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("employee_id=$%d", len(args)))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		clauses = append(clauses, fmt.Sprintf("manager_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE %s ORDER BY created_at DESC, id DESC`,
		feedbackColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list feedback", err)
	}
	defer rows.Close()

	out := []*domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, classify("scan feedback", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list feedback", err)
	}
	return out, nil
}

// Update applies the patch only while version still equals expectedVersion.
func (r *FeedbackRepository) Update(ctx context.Context, id string, expectedVersion int64, patch ports.FeedbackPatch, at time.Time) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := []any{at}
	sets := []string{"updated_at=$1", "version=version+1"}
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Strengths != nil {
		set("strengths", *patch.Strengths)
	}
	if patch.AreasToImprove != nil {
		set("areas_to_improve", *patch.AreasToImprove)
	}
	if patch.Sentiment != nil {
		set("sentiment", string(*patch.Sentiment))
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	}
	if patch.Comments != nil {
		set("comments", *patch.Comments)
	}

	args = append(args, id, expectedVersion)
	query := fmt.Sprintf(`UPDATE feedback SET %s WHERE id=$%d AND version=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), feedbackColumns)

	f, err := scanFeedback(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify("update feedback", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feedback WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, classify("update feedback", err)
	}
	if !exists {
		return nil, domain.ErrFeedbackNotFound
	}
	return nil, domain.ErrVersionMismatch
}

// Acknowledge flips acknowledged only while it is still false, so
// acknowledged_at is written at most once.
func (r *FeedbackRepository) Acknowledge(ctx context.Context, id string, at time.Time) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const query = `
        UPDATE feedback SET acknowledged=TRUE, acknowledged_at=$2, updated_at=$2
        WHERE id=$1 AND acknowledged=FALSE
        RETURNING ` + feedbackColumns

	f, err := scanFeedback(r.pool.QueryRow(ctx, query, id, at))
	if err == nil {
		return f, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return r.FindByID(ctx, id)
	}
	return nil, classify("acknowledge feedback", err)
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `DELETE FROM feedback WHERE id=$1`, id)
	if err != nil {
		return classify("delete feedback", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}
