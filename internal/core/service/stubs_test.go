package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub feedback repository
// ---------------------------------------------------------------------------

type stubFeedbackRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Feedback

	createErr  error                              // if set, Create returns this error
	listErr    error                              // if set, List returns this error
	listErrFor func(f ports.FeedbackFilter) error // per-filter List failure
	updateHook func(id string)                    // called before Update compares versions
	ackCalls   int
}

func newStubFeedbackRepo() *stubFeedbackRepo {
	return &stubFeedbackRepo{records: make(map[string]*domain.Feedback)}
}

func cloneFeedback(f *domain.Feedback) *domain.Feedback {
	clone := *f
	clone.Tags = append([]string(nil), f.Tags...)
	if f.AcknowledgedAt != nil {
		at := *f.AcknowledgedAt
		clone.AcknowledgedAt = &at
	}
	return &clone
}

func (r *stubFeedbackRepo) Create(_ context.Context, f *domain.Feedback) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[f.ID] = cloneFeedback(f)
	return nil
}

func (r *stubFeedbackRepo) FindByID(_ context.Context, id string) (*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.records[id]
	if !ok {
		return nil, domain.ErrFeedbackNotFound
	}
	return cloneFeedback(f), nil
}

// List applies the same conjunction the real stores use.
func (r *stubFeedbackRepo) List(_ context.Context, filter ports.FeedbackFilter) ([]*domain.Feedback, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if r.listErrFor != nil {
		if err := r.listErrFor(filter); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Feedback{}
	for _, f := range r.records {
		if filter.EmployeeID != "" && f.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.ManagerID != "" && f.ManagerID != filter.ManagerID {
			continue
		}
		out = append(out, cloneFeedback(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *stubFeedbackRepo) Update(_ context.Context, id string, expectedVersion int64, patch ports.FeedbackPatch, at time.Time) (*domain.Feedback, error) {
	if r.updateHook != nil {
		r.updateHook(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.records[id]
	if !ok {
		return nil, domain.ErrFeedbackNotFound
	}
	if f.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}
	if patch.Strengths != nil {
		f.Strengths = *patch.Strengths
	}
	if patch.AreasToImprove != nil {
		f.AreasToImprove = *patch.AreasToImprove
	}
	if patch.Sentiment != nil {
		f.Sentiment = *patch.Sentiment
	}
	if patch.Tags != nil {
		f.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.Comments != nil {
		f.Comments = *patch.Comments
	}
	f.Version++
	f.UpdatedAt = at
	return cloneFeedback(f), nil
}

func (r *stubFeedbackRepo) Acknowledge(_ context.Context, id string, at time.Time) (*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ackCalls++
	f, ok := r.records[id]
	if !ok {
		return nil, domain.ErrFeedbackNotFound
	}
	if !f.Acknowledged {
		f.Acknowledged = true
		stamp := at
		f.AcknowledgedAt = &stamp
		f.UpdatedAt = at
	}
	return cloneFeedback(f), nil
}

func (r *stubFeedbackRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return domain.ErrFeedbackNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *stubFeedbackRepo) put(f *domain.Feedback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[f.ID] = cloneFeedback(f)
}

func (r *stubFeedbackRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ---------------------------------------------------------------------------
// In-memory stub user repository / directory
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	getErr  error // if set, GetUserByID returns this error
	teamErr error // if set, GetTeamMembers returns this error
	block   bool  // if set, GetUserByID waits for ctx to be done
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) GetTeamMembers(_ context.Context, managerID string) ([]*domain.User, error) {
	if r.teamErr != nil {
		return nil, r.teamErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.User{}
	for _, u := range r.users {
		if u.ManagerID == managerID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) AssignManager(_ context.Context, employeeID, managerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[employeeID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.ManagerID != "" {
		return domain.ErrConflict
	}
	u.ManagerID = managerID
	return nil
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	managerID  = uuid.NewString()
	otherMgrID = uuid.NewString()
	aliceID    = uuid.NewString()
	bobID      = uuid.NewString()
	carolID    = uuid.NewString() // on the other manager's team
)

func fixtureUsers() []*domain.User {
	return []*domain.User{
		{ID: managerID, FirstName: "Sarah", LastName: "Johnson", Email: "sarah@company.com", Role: domain.RoleManager},
		{ID: otherMgrID, FirstName: "Omar", LastName: "Reyes", Email: "omar@company.com", Role: domain.RoleManager},
		{ID: aliceID, FirstName: "Alice", LastName: "Chen", Email: "alice@company.com", Role: domain.RoleEmployee, ManagerID: managerID},
		{ID: bobID, FirstName: "Bob", LastName: "Davis", Email: "bob@company.com", Role: domain.RoleEmployee, ManagerID: managerID},
		{ID: carolID, FirstName: "Carol", LastName: "Rodriguez", Email: "carol@company.com", Role: domain.RoleEmployee, ManagerID: otherMgrID},
	}
}

func manager() domain.Principal { return domain.Principal{UserID: managerID, Role: domain.RoleManager} }
func otherManager() domain.Principal {
	return domain.Principal{UserID: otherMgrID, Role: domain.RoleManager}
}
func alice() domain.Principal { return domain.Principal{UserID: aliceID, Role: domain.RoleEmployee} }
func bob() domain.Principal   { return domain.Principal{UserID: bobID, Role: domain.RoleEmployee} }

func validDraft(employeeID string) ports.CreateFeedbackInput {
	return ports.CreateFeedbackInput{
		EmployeeID:     employeeID,
		Strengths:      "Clear communication",
		AreasToImprove: "Estimate more conservatively",
		Sentiment:      "positive",
		Tags:           "communication, planning",
	}
}

func strPtr(s string) *string { return &s }
