package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

const sample = `
users:
  - key: sarah
    first_name: Sarah
    last_name: Johnson
    email: Sarah@Company.com
    password: password123
    role: manager
  - key: mike
    first_name: Mike
    last_name: Chen
    email: mike@company.com
    password: password123
    role: employee
    manager: sarah
feedback:
  - manager: sarah
    employee: mike
    strengths: Solid
    areas_to_improve: Docs
    sentiment: positive
    tags: quality, quality, docs
    date: 2024-01-15T10:00:00Z
    acknowledged: true
`

type memUsers struct {
	users    map[string]*domain.User
	managers map[string]string
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}
func (m *memUsers) GetTeamMembers(context.Context, string) ([]*domain.User, error) { return nil, nil }
func (m *memUsers) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.users[u.ID] = u
	return nil
}
func (m *memUsers) AssignManager(_ context.Context, employeeID, managerID string) error {
	m.managers[employeeID] = managerID
	return nil
}
func (m *memUsers) Count(context.Context) (int64, error) { return int64(len(m.users)), nil }

type memFeedback struct {
	ports.FeedbackRepository
	created []*domain.Feedback
}

func (m *memFeedback) Create(_ context.Context, f *domain.Feedback) error {
	m.created = append(m.created, f)
	return nil
}

func TestParse_Validates(t *testing.T) {
	tests := map[string]string{
		"empty":         "   ",
		"bad role":      "users:\n  - key: a\n    role: admin\n",
		"missing key":   "users:\n  - email: a@b.co\n    role: manager\n",
		"cross team":    "users:\n  - key: m\n    role: manager\n  - key: e\n    role: employee\nfeedback:\n  - manager: m\n    employee: e\n    sentiment: positive\n",
		"bad manager":   "users:\n  - key: a\n    role: employee\n  - key: b\n    role: employee\n    manager: a\n",
		"bad sentiment": "users:\n  - key: m\n    role: manager\n  - key: e\n    role: employee\n    manager: m\nfeedback:\n  - manager: m\n    employee: e\n    sentiment: great\n",
	}
	for name, payload := range tests {
		if _, err := Parse([]byte(payload)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestApply(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	users := &memUsers{users: map[string]*domain.User{}, managers: map[string]string{}}
	fbs := &memFeedback{}
	if err := Apply(context.Background(), f, users, fbs, zerolog.Nop()); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(users.users) != 2 || len(users.managers) != 1 {
		t.Fatalf("expected 2 users and 1 assignment, got %d and %d", len(users.users), len(users.managers))
	}
	for _, u := range users.users {
		if u.Email != strings.ToLower(u.Email) {
			t.Errorf("email not normalized: %q", u.Email)
		}
	}
	if len(fbs.created) != 1 {
		t.Fatalf("expected 1 feedback record, got %d", len(fbs.created))
	}
	rec := fbs.created[0]
	if !rec.Acknowledged || rec.AcknowledgedAt == nil {
		t.Errorf("expected acknowledged record with timestamp")
	}
	if !rec.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at: %v", rec.CreatedAt)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", rec.Tags)
	}
	if users.managers[rec.EmployeeID] != rec.ManagerID {
		t.Errorf("feedback author is not the employee's manager")
	}

	// A populated store is left alone.
	if err := Apply(context.Background(), f, users, fbs, zerolog.Nop()); err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}
	if len(users.users) != 2 || len(fbs.created) != 1 {
		t.Errorf("second Apply must not write anything")
	}
}
