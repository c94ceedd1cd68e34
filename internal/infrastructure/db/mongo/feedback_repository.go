package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

const collectionFeedback = "feedback"

// FeedbackRepository implements ports.FeedbackRepository using MongoDB.
type FeedbackRepository struct {
	col *mongo.Collection
}

func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{col: db.Collection(collectionFeedback)}
}

// Create inserts a new feedback document.
func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return classify("insert feedback", err)
	}
	return nil
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var f domain.Feedback
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, classify("find feedback", err)
	}
	return &f, nil
}

// List returns matching records sorted by created_at then _id, both descending.
func (r *FeedbackRepository) List(ctx context.Context, filter ports.FeedbackFilter) ([]*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.EmployeeID != "" {
		q["employee_id"] = filter.EmployeeID
	}
	if filter.ManagerID != "" {
		q["manager_id"] = filter.ManagerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, classify("list feedback", err)
	}
	defer cursor.Close(ctx)

	out := []*domain.Feedback{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, classify("decode feedback", err)
	}
	return out, nil
}

// Update applies the patch with a compare-and-set on the version field.
func (r *FeedbackRepository) Update(ctx context.Context, id string, expectedVersion int64, patch ports.FeedbackPatch, at time.Time) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": at}
	if patch.Strengths != nil {
		set["strengths"] = *patch.Strengths
	}
	if patch.AreasToImprove != nil {
		set["areas_to_improve"] = *patch.AreasToImprove
	}
	if patch.Sentiment != nil {
		set["sentiment"] = *patch.Sentiment
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Comments != nil {
		set["comments"] = *patch.Comments
	}

	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var f domain.Feedback
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&f)
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, classify("update feedback", err)
	}

	// No match: either the record is gone or someone else bumped the version.
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, classify("update feedback", err)
	}
	if n == 0 {
		return nil, domain.ErrFeedbackNotFound
	}
	return nil, domain.ErrVersionMismatch
}

// Acknowledge flips acknowledged only while it is still false, so
// acknowledged_at is written at most once.
func (r *FeedbackRepository) Acknowledge(ctx context.Context, id string, at time.Time) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "acknowledged": false}
	update := bson.M{"$set": bson.M{
		"acknowledged":    true,
		"acknowledged_at": at,
		"updated_at":      at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var f domain.Feedback
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&f)
	if err == nil {
		return &f, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.FindByID(ctx, id)
	}
	return nil, classify("acknowledge feedback", err)
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify("delete feedback", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes backing the scoped list queries.
func (r *FeedbackRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "manager_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "employee_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
