// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryModeration = "moderation"
)

// Moderation event types
const (
	EventClaimSubmitted  = "claim_submitted"
	EventClaimApproved   = "claim_approved"
	EventClaimRejected   = "claim_rejected"
	EventClaimRevoked    = "claim_revoked"
	EventClaimDeleted    = "claim_deleted"
	EventOwnerAssigned   = "owner_assigned"
	EventReviewSubmitted = "review_submitted"
	EventReviewApproved  = "review_approved"
	EventReviewRejected  = "review_rejected"
	EventReviewDeleted   = "review_deleted"
	EventBatchApplied    = "batch_applied"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user (claimant, reviewer)

	// What
	SubjectID  *primitive.ObjectID `bson:"subject_id,omitempty"` // claim or review
	BusinessID *primitive.ObjectID `bson:"business_id,omitempty"`
	BatchID    string              `bson:"batch_id,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorID    *primitive.ObjectID
	SubjectID  *primitive.ObjectID
	BusinessID *primitive.ObjectID
	Category   string
	EventType  string
	BatchID    string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) toBSON() bson.M {
	query := bson.M{}
	if f.ActorID != nil {
		query["actor_id"] = *f.ActorID
	}
	if f.SubjectID != nil {
		query["subject_id"] = *f.SubjectID
	}
	if f.BusinessID != nil {
		query["business_id"] = *f.BusinessID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.BatchID != "" {
		query["batch_id"] = f.BatchID
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves audit events matching the given filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.toBSON())
}

// GetBySubject retrieves the history of one claim or review.
func (s *Store) GetBySubject(ctx context.Context, subjectID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{SubjectID: &subjectID, Limit: limit})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}
