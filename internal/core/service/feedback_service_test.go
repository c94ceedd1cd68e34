package service

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

func newTestFeedbackService(repo *stubFeedbackRepo, users *stubUserRepo) *FeedbackService {
	return NewFeedbackService(FeedbackServiceConfig{
		Repo:      repo,
		Directory: users,
		Timeout:   time.Second,
		Logger:    zerolog.Nop(),
	})
}

func seedFeedback(t *testing.T, svc *FeedbackService, employeeID string) *domain.FeedbackView {
	t.Helper()
	fb, err := svc.CreateFeedback(context.Background(), manager(), validDraft(employeeID))
	if err != nil {
		t.Fatalf("CreateFeedback returned error: %v", err)
	}
	return fb
}

// ---------------------------------------------------------------------------
// CreateFeedback
// ---------------------------------------------------------------------------

func TestFeedbackService_Create_Success(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))

	fb := seedFeedback(t, svc, aliceID)

	if fb.ManagerID != managerID || fb.EmployeeID != aliceID {
		t.Fatalf("unexpected ownership: manager=%s employee=%s", fb.ManagerID, fb.EmployeeID)
	}
	if fb.Acknowledged || fb.AcknowledgedAt != nil {
		t.Errorf("new feedback must be pending")
	}
	if fb.Version != 1 {
		t.Errorf("expected version 1, got %d", fb.Version)
	}
	if !reflect.DeepEqual(fb.Tags, []string{"communication", "planning"}) {
		t.Errorf("unexpected tags: %v", fb.Tags)
	}
	if fb.ManagerName != "Sarah Johnson" || fb.EmployeeName != "Alice Chen" {
		t.Errorf("unexpected names: %q %q", fb.ManagerName, fb.EmployeeName)
	}
	if _, err := uuid.Parse(fb.ID); err != nil {
		t.Errorf("expected uuid id, got %q", fb.ID)
	}
	if repo.len() != 1 {
		t.Errorf("expected 1 stored record, got %d", repo.len())
	}
}

func TestFeedbackService_Create_Rejections(t *testing.T) {
	missing := uuid.NewString()
	tests := []struct {
		name      string
		principal domain.Principal
		input     ports.CreateFeedbackInput
		want      error
	}{
		{"employee caller", alice(), validDraft(bobID), domain.ErrForbidden},
		{"not a direct report", manager(), validDraft(carolID), domain.ErrNotDirectReport},
		{"unknown employee", manager(), validDraft(missing), domain.ErrNotDirectReport},
		{"malformed employee id", manager(), validDraft("not-an-id"), domain.ErrInvalidInput},
		{"anonymous", domain.Principal{}, validDraft(aliceID), domain.ErrUnauthenticated},
		{"empty strengths", manager(), func() ports.CreateFeedbackInput {
			in := validDraft(aliceID)
			in.Strengths = "   "
			return in
		}(), domain.ErrInvalidInput},
		{"empty areas", manager(), func() ports.CreateFeedbackInput {
			in := validDraft(aliceID)
			in.AreasToImprove = ""
			return in
		}(), domain.ErrInvalidInput},
		{"bad sentiment", manager(), func() ports.CreateFeedbackInput {
			in := validDraft(aliceID)
			in.Sentiment = "ecstatic"
			return in
		}(), domain.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubFeedbackRepo()
			svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))

			_, err := svc.CreateFeedback(context.Background(), tc.principal, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if repo.len() != 0 {
				t.Errorf("rejected create must not store anything")
			}
		})
	}
}

func TestFeedbackService_Create_DirectoryTimeout(t *testing.T) {
	users := newStubUserRepo(fixtureUsers()...)
	users.block = true
	svc := NewFeedbackService(FeedbackServiceConfig{
		Repo:      newStubFeedbackRepo(),
		Directory: users,
		Timeout:   20 * time.Millisecond,
		Logger:    zerolog.Nop(),
	})

	_, err := svc.CreateFeedback(context.Background(), manager(), validDraft(aliceID))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFeedbackService_Create_StoreUnavailable(t *testing.T) {
	repo := newStubFeedbackRepo()
	repo.createErr = domain.ErrUnavailable
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))

	if _, err := svc.CreateFeedback(context.Background(), manager(), validDraft(aliceID)); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ListFeedback / GetFeedback
// ---------------------------------------------------------------------------

func TestFeedbackService_List_ScopedToCaller(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	seedFeedback(t, svc, aliceID)
	seedFeedback(t, svc, aliceID)
	seedFeedback(t, svc, bobID)

	ctx := context.Background()

	all, err := svc.ListFeedback(ctx, manager(), ports.ListFeedbackInput{})
	if err != nil || len(all) != 3 {
		t.Fatalf("manager list: got %d records, err %v", len(all), err)
	}

	forAlice, err := svc.ListFeedback(ctx, manager(), ports.ListFeedbackInput{EmployeeID: aliceID})
	if err != nil || len(forAlice) != 2 {
		t.Fatalf("manager list filtered to alice: got %d records, err %v", len(forAlice), err)
	}

	mine, err := svc.ListFeedback(ctx, alice(), ports.ListFeedbackInput{})
	if err != nil || len(mine) != 2 {
		t.Fatalf("alice list: got %d records, err %v", len(mine), err)
	}
	for _, fb := range mine {
		if fb.EmployeeID != aliceID {
			t.Errorf("alice saw record for %s", fb.EmployeeID)
		}
	}

	// A filter conflicting with the caller's scope matches nothing.
	other, err := svc.ListFeedback(ctx, alice(), ports.ListFeedbackInput{EmployeeID: bobID})
	if err != nil || len(other) != 0 {
		t.Fatalf("alice list for bob: got %d records, err %v", len(other), err)
	}
	foreign, err := svc.ListFeedback(ctx, otherManager(), ports.ListFeedbackInput{})
	if err != nil || len(foreign) != 0 {
		t.Fatalf("other manager list: got %d records, err %v", len(foreign), err)
	}
}

func TestFeedbackService_List_MalformedFilter(t *testing.T) {
	svc := newTestFeedbackService(newStubFeedbackRepo(), newStubUserRepo(fixtureUsers()...))

	_, err := svc.ListFeedback(context.Background(), manager(), ports.ListFeedbackInput{EmployeeID: "bogus"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFeedbackService_Get_VisibilityHidesExistence(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	if _, err := svc.GetFeedback(ctx, manager(), fb.ID); err != nil {
		t.Errorf("author get: %v", err)
	}
	if _, err := svc.GetFeedback(ctx, alice(), fb.ID); err != nil {
		t.Errorf("subject get: %v", err)
	}

	_, errBob := svc.GetFeedback(ctx, bob(), fb.ID)
	_, errOther := svc.GetFeedback(ctx, otherManager(), fb.ID)
	_, errMissing := svc.GetFeedback(ctx, manager(), uuid.NewString())
	for name, err := range map[string]error{"bob": errBob, "other manager": errOther, "missing": errMissing} {
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
	if errBob.Error() != errMissing.Error() {
		t.Errorf("invisible and missing records must be indistinguishable: %q vs %q", errBob, errMissing)
	}
}

func TestFeedbackService_Get_NamesBestEffort(t *testing.T) {
	repo := newStubFeedbackRepo()
	users := newStubUserRepo(fixtureUsers()...)
	svc := newTestFeedbackService(repo, users)
	fb := seedFeedback(t, svc, aliceID)

	users.getErr = domain.ErrUnavailable
	got, err := svc.GetFeedback(context.Background(), alice(), fb.ID)
	if err != nil {
		t.Fatalf("name lookup failure must not fail the read: %v", err)
	}
	if got.ManagerName != "" || got.EmployeeName != "" {
		t.Errorf("expected empty names, got %q %q", got.ManagerName, got.EmployeeName)
	}
}

// ---------------------------------------------------------------------------
// UpdateFeedback
// ---------------------------------------------------------------------------

func TestFeedbackService_Update_AuthorPatch(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)

	got, err := svc.UpdateFeedback(context.Background(), manager(), fb.ID, ports.UpdateFeedbackInput{
		Sentiment: strPtr("Negative"),
		Tags:      strPtr("quality, quality , ,ownership"),
	})
	if err != nil {
		t.Fatalf("UpdateFeedback returned error: %v", err)
	}
	if got.Sentiment != domain.SentimentNegative {
		t.Errorf("sentiment not applied: %s", got.Sentiment)
	}
	if !reflect.DeepEqual(got.Tags, []string{"quality", "ownership"}) {
		t.Errorf("unexpected tags: %v", got.Tags)
	}
	if got.Strengths != fb.Strengths {
		t.Errorf("unpatched field changed: %q", got.Strengths)
	}
	if got.Version != fb.Version+1 {
		t.Errorf("expected version %d, got %d", fb.Version+1, got.Version)
	}
}

func TestFeedbackService_Update_Rejections(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()
	ack := true
	other := bobID

	tests := []struct {
		name      string
		principal domain.Principal
		input     ports.UpdateFeedbackInput
		want      error
	}{
		{"subject edits", alice(), ports.UpdateFeedbackInput{Comments: strPtr("x")}, domain.ErrForbidden},
		{"stranger edits", bob(), ports.UpdateFeedbackInput{Comments: strPtr("x")}, domain.ErrNotFound},
		{"other manager edits", otherManager(), ports.UpdateFeedbackInput{Comments: strPtr("x")}, domain.ErrNotFound},
		{"reassign employee", manager(), ports.UpdateFeedbackInput{EmployeeID: &other}, domain.ErrInvalidInput},
		{"set acknowledged", manager(), ports.UpdateFeedbackInput{Acknowledged: &ack}, domain.ErrInvalidInput},
		{"blank strengths", manager(), ports.UpdateFeedbackInput{Strengths: strPtr(" ")}, domain.ErrInvalidInput},
		{"bad sentiment", manager(), ports.UpdateFeedbackInput{Sentiment: strPtr("meh")}, domain.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.UpdateFeedback(ctx, tc.principal, fb.ID, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	stored, _ := repo.FindByID(ctx, fb.ID)
	if stored.Version != 1 || stored.Comments != "" {
		t.Errorf("rejected updates must not change the record: %+v", stored)
	}
}

func TestFeedbackService_Update_ConcurrentModification(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)

	// Another writer bumps the version between our read and our write.
	repo.updateHook = func(id string) {
		repo.mu.Lock()
		repo.records[id].Version++
		repo.mu.Unlock()
	}

	_, err := svc.UpdateFeedback(context.Background(), manager(), fb.ID, ports.UpdateFeedbackInput{Comments: strPtr("late")})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFeedbackService_Update_DoesNotTouchAcknowledgment(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	acked, err := svc.AcknowledgeFeedback(ctx, alice(), fb.ID)
	if err != nil {
		t.Fatalf("AcknowledgeFeedback returned error: %v", err)
	}
	got, err := svc.UpdateFeedback(ctx, manager(), fb.ID, ports.UpdateFeedbackInput{Comments: strPtr("follow-up")})
	if err != nil {
		t.Fatalf("UpdateFeedback returned error: %v", err)
	}
	if !got.Acknowledged || got.AcknowledgedAt == nil || !got.AcknowledgedAt.Equal(*acked.AcknowledgedAt) {
		t.Errorf("content edit must keep the acknowledgment: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// AcknowledgeFeedback
// ---------------------------------------------------------------------------

func TestFeedbackService_Acknowledge_Idempotent(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	first, err := svc.AcknowledgeFeedback(ctx, alice(), fb.ID)
	if err != nil {
		t.Fatalf("first acknowledge: %v", err)
	}
	if !first.Acknowledged || first.AcknowledgedAt == nil {
		t.Fatalf("expected acknowledged record, got %+v", first)
	}

	second, err := svc.AcknowledgeFeedback(ctx, alice(), fb.ID)
	if err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	if !second.AcknowledgedAt.Equal(*first.AcknowledgedAt) || second.UpdatedAt != first.UpdatedAt {
		t.Errorf("re-acknowledging must not change the record")
	}
	if repo.ackCalls != 1 {
		t.Errorf("expected a single store transition, got %d", repo.ackCalls)
	}
	if second.Version != fb.Version {
		t.Errorf("acknowledging must not bump the content version")
	}
}

func TestFeedbackService_Acknowledge_Rejections(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	if _, err := svc.AcknowledgeFeedback(ctx, manager(), fb.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("author acknowledge: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.AcknowledgeFeedback(ctx, bob(), fb.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("stranger acknowledge: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AcknowledgeFeedback(ctx, alice(), uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing acknowledge: expected ErrNotFound, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, fb.ID)
	if stored.Acknowledged {
		t.Errorf("rejected acknowledgments must leave the record pending")
	}
}

// Acknowledged never reverts, whatever sequence of operations runs.
func TestFeedbackService_Acknowledge_Monotonic(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	rng := rand.New(rand.NewSource(42))
	principals := []domain.Principal{manager(), alice(), bob(), otherManager()}
	ackedOnce := false

	for i := 0; i < 200; i++ {
		p := principals[rng.Intn(len(principals))]
		switch rng.Intn(3) {
		case 0:
			_, _ = svc.AcknowledgeFeedback(ctx, p, fb.ID)
		case 1:
			_, _ = svc.UpdateFeedback(ctx, p, fb.ID, ports.UpdateFeedbackInput{Comments: strPtr("step")})
		case 2:
			_, _ = svc.GetFeedback(ctx, p, fb.ID)
		}

		stored, err := repo.FindByID(ctx, fb.ID)
		if err != nil {
			t.Fatalf("record vanished at step %d: %v", i, err)
		}
		if ackedOnce && !stored.Acknowledged {
			t.Fatalf("acknowledgment reverted at step %d", i)
		}
		ackedOnce = stored.Acknowledged
	}
}

// ---------------------------------------------------------------------------
// DeleteFeedback
// ---------------------------------------------------------------------------

func TestFeedbackService_Delete(t *testing.T) {
	repo := newStubFeedbackRepo()
	svc := newTestFeedbackService(repo, newStubUserRepo(fixtureUsers()...))
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	if err := svc.DeleteFeedback(ctx, alice(), fb.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("subject delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteFeedback(ctx, otherManager(), fb.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other manager delete: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteFeedback(ctx, manager(), fb.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if _, err := svc.GetFeedback(ctx, manager(), fb.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted record still readable: %v", err)
	}
	if err := svc.DeleteFeedback(ctx, manager(), fb.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

type recordingSerializer struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingSerializer) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return fn(ctx)
}

func TestFeedbackService_MutationsAreSerializedByRecord(t *testing.T) {
	repo := newStubFeedbackRepo()
	ser := &recordingSerializer{}
	svc := NewFeedbackService(FeedbackServiceConfig{
		Repo:       repo,
		Directory:  newStubUserRepo(fixtureUsers()...),
		Serializer: ser,
		Logger:     zerolog.Nop(),
	})
	fb := seedFeedback(t, svc, aliceID)
	ctx := context.Background()

	_, _ = svc.UpdateFeedback(ctx, manager(), fb.ID, ports.UpdateFeedbackInput{Comments: strPtr("x")})
	_, _ = svc.AcknowledgeFeedback(ctx, alice(), fb.ID)
	_ = svc.DeleteFeedback(ctx, manager(), fb.ID)

	want := []string{fb.ID, fb.ID, fb.ID}
	if !reflect.DeepEqual(ser.keys, want) {
		t.Fatalf("expected serializer keys %v, got %v", want, ser.keys)
	}
}
