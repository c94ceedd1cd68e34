package domain

// ManagerStats summarises the records authored by one manager.
type ManagerStats struct {
	TotalFeedbackGiven int `json:"total_feedback_given"`
	PositiveCount      int `json:"positive_feedback_count"`
	NeutralCount       int `json:"neutral_feedback_count"`
	NegativeCount      int `json:"negative_feedback_count"`
}

// Add tallies one record.
func (s *ManagerStats) Add(f *Feedback) {
	s.TotalFeedbackGiven++
	switch f.Sentiment {
	case SentimentPositive:
		s.PositiveCount++
	case SentimentNeutral:
		s.NeutralCount++
	case SentimentNegative:
		s.NegativeCount++
	}
}

// EmployeeStats summarises the records addressed to one employee.
type EmployeeStats struct {
	TotalReceived     int `json:"total_feedback_received"`
	TotalAcknowledged int `json:"total_acknowledged"`
	TotalPending      int `json:"total_pending"`
}

// Add tallies one record.
func (s *EmployeeStats) Add(f *Feedback) {
	s.TotalReceived++
	if f.Acknowledged {
		s.TotalAcknowledged++
	}
	s.TotalPending = s.TotalReceived - s.TotalAcknowledged
}

// DashboardStats is derived on every request and never stored. Exactly one
// of Manager or Employee is set, matching Role.
type DashboardStats struct {
	Role     Role           `json:"role"`
	Manager  *ManagerStats  `json:"manager,omitempty"`
	Employee *EmployeeStats `json:"employee,omitempty"`
	// Degraded is true when the store could not be read and zero counts were
	// returned instead.
	Degraded bool `json:"degraded,omitempty"`
}

// TeamMemberCounts holds the acknowledgment tallies of one direct report.
type TeamMemberCounts struct {
	FeedbackCount     int `json:"feedback_count"`
	AcknowledgedCount int `json:"acknowledged_count"`
	PendingCount      int `json:"pending_count"`
}

// TeamMemberOverview pairs a direct report with their counts.
type TeamMemberOverview struct {
	User   User             `json:"user"`
	Counts TeamMemberCounts `json:"counts"`
	// Degraded marks a member whose counts could not be derived.
	Degraded bool `json:"degraded,omitempty"`
}
