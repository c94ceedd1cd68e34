package domain

import (
	"strings"
	"time"
)

// Sentiment is the overall tone a manager assigns to a feedback record.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment validates a raw sentiment value.
func ParseSentiment(s string) (Sentiment, error) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return v, nil
	default:
		return "", Invalid("sentiment must be one of: positive neutral negative")
	}
}

// AckState is the acknowledgment lifecycle state of a feedback record.
type AckState string

const (
	AckPending      AckState = "pending"
	AckAcknowledged AckState = "acknowledged"
)

// validAckTransitions defines the allowed state machine transitions.
// Acknowledged is terminal.
var validAckTransitions = map[AckState][]AckState{
	AckPending: {AckAcknowledged},
}

// CanTransitionTo reports whether a transition from current state to next is valid.
func (s AckState) CanTransitionTo(next AckState) bool {
	for _, allowed := range validAckTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Acknowledge computes the outcome of the Pending -> Acknowledged transition.
// changed is false when the record is already acknowledged: re-acknowledging
// is a successful no-op so client retries stay safe.
func (s AckState) Acknowledge() (next AckState, changed bool) {
	if s.CanTransitionTo(AckAcknowledged) {
		return AckAcknowledged, true
	}
	return s, false
}

const (
	maxTagLength = 64
	maxTags      = 20
)

// ParseTags splits a comma-delimited tag string into trimmed, non-empty tags,
// preserving order and dropping duplicates.
func ParseTags(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	seen := make(map[string]struct{})
	tags := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, Invalid("tag %q exceeds %d characters", tag, maxTagLength)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, Invalid("at most %d tags are allowed", maxTags)
	}
	return tags, nil
}

// JoinTags renders tags in their comma-delimited transport form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Feedback is the core aggregate root. EmployeeID, ManagerID and CreatedAt are
// fixed at creation; Acknowledged only ever moves false -> true.
type Feedback struct {
	ID             string     `json:"id" bson:"_id"`
	EmployeeID     string     `json:"employee_id" bson:"employee_id"`
	ManagerID      string     `json:"manager_id" bson:"manager_id"`
	Strengths      string     `json:"strengths" bson:"strengths"`
	AreasToImprove string     `json:"areas_to_improve" bson:"areas_to_improve"`
	Sentiment      Sentiment  `json:"sentiment" bson:"sentiment"`
	Tags           []string   `json:"tags" bson:"tags"`
	Comments       string     `json:"comments,omitempty" bson:"comments,omitempty"`
	Acknowledged   bool       `json:"acknowledged" bson:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" bson:"acknowledged_at,omitempty"`
	Version        int64      `json:"version" bson:"version"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// AckState derives the state machine position from the stored flag.
func (f *Feedback) AckState() AckState {
	if f.Acknowledged {
		return AckAcknowledged
	}
	return AckPending
}

// IsAuthor reports whether p wrote this record.
func (f *Feedback) IsAuthor(p Principal) bool {
	return p.Role == RoleManager && f.ManagerID == p.UserID
}

// IsSubject reports whether the record is about p.
func (f *Feedback) IsSubject(p Principal) bool {
	return p.Role == RoleEmployee && f.EmployeeID == p.UserID
}

// VisibleTo reports whether p may see the record at all.
func (f *Feedback) VisibleTo(p Principal) bool {
	return f.IsAuthor(p) || f.IsSubject(p)
}

// FeedbackView is a record enriched with the display names of its author and
// subject.
type FeedbackView struct {
	Feedback
	ManagerName  string `json:"manager_name,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
}
