package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
)

var testNow = time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

// fakeStore backs the admission engine with in-memory state guarded the way
// the SQL store guards it: the capacity check, duplicate check and insert in
// CreateConfirmed happen under one lock.
type fakeStore struct {
	mu    sync.Mutex
	users map[int]types.User
	event types.Event
	regs  map[int]types.Registration
	next  int64

	// conflictsLeft injects lost capacity races: CreateConfirmed fails with
	// ErrCapacityConflict that many times before behaving normally.
	conflictsLeft int
	// fillOnConflict makes each injected race also fill the event, the way
	// a real winning racer would.
	fillOnConflict bool
}

func newFakeStore(event types.Event, users ...types.User) *fakeStore {
	s := &fakeStore{
		users: make(map[int]types.User),
		event: event,
		regs:  make(map[int]types.Registration),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id int) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) Get(ctx context.Context, id int) (types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.event.ID {
		return types.Event{}, store.ErrNotFound
	}
	return s.event, nil
}

func (s *fakeStore) FindActive(ctx context.Context, userID, eventID int) (types.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[userID]
	if !ok || reg.Status == types.RegistrationCancelled {
		return types.Registration{}, store.ErrNotFound
	}
	return reg, nil
}

func (s *fakeStore) CreateConfirmed(ctx context.Context, userID, eventID int) (types.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		if s.fillOnConflict {
			s.event.Registration.CurrentCount = s.event.Registration.MaxParticipants
		}
		return types.Registration{}, store.ErrCapacityConflict
	}

	max := s.event.Registration.MaxParticipants
	if max > 0 && s.event.Registration.CurrentCount >= max {
		return types.Registration{}, store.ErrCapacityConflict
	}
	if reg, ok := s.regs[userID]; ok && reg.Status != types.RegistrationCancelled {
		return types.Registration{}, store.ErrDuplicate
	}

	s.event.Registration.CurrentCount++
	s.next++
	reg := types.Registration{
		ID:           s.next,
		EventID:      eventID,
		UserID:       userID,
		Status:       types.RegistrationConfirmed,
		RegisteredAt: testNow,
	}
	s.regs[userID] = reg
	return reg, nil
}

func (s *fakeStore) currentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event.Registration.CurrentCount
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return "msg-1", nil
}

func testEvent(maxParticipants, currentCount int) types.Event {
	return types.Event{
		ID:     10,
		Title:  "Tech Symposium",
		Status: types.EventApproved,
		Registration: types.RegistrationWindow{
			Required:        true,
			IsOpen:          true,
			StartDate:       testNow.AddDate(0, 0, -2),
			EndDate:         testNow.AddDate(0, 0, 2),
			MaxParticipants: maxParticipants,
			CurrentCount:    currentCount,
		},
	}
}

func newAdmissionService(s *fakeStore, pub Publisher) *AdmissionService {
	return NewAdmissionService(s, s, s, pub).WithClock(func() time.Time { return testNow })
}

func TestAdmitUnknownUserAndEvent(t *testing.T) {
	s := newFakeStore(testEvent(10, 0), student("CSE", "BTech", 2, "A"))
	svc := newAdmissionService(s, nil)

	if _, err := svc.Admit(context.Background(), 99, 10); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown user: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Admit(context.Background(), 1, 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown event: err = %v, want ErrNotFound", err)
	}
}

func TestAdmitRejections(t *testing.T) {
	tests := []struct {
		name       string
		user       types.User
		mutate     func(*types.Event)
		wantReason types.RejectionReason
	}{
		{
			name:       "event still draft",
			user:       student("CSE", "BTech", 2, "A"),
			mutate:     func(e *types.Event) { e.Status = types.EventDraft },
			wantReason: types.ReasonEventNotOpen,
		},
		{
			name:       "organizer switch closed regardless of dates",
			user:       student("CSE", "BTech", 2, "A"),
			mutate:     func(e *types.Event) { e.Registration.IsOpen = false },
			wantReason: types.ReasonWindowClosed,
		},
		{
			name: "window not yet open",
			user: student("CSE", "BTech", 2, "A"),
			mutate: func(e *types.Event) {
				e.Registration.StartDate = testNow.AddDate(0, 0, 1)
			},
			wantReason: types.ReasonNotYetOpen,
		},
		{
			name: "window already over",
			user: student("CSE", "BTech", 2, "A"),
			mutate: func(e *types.Event) {
				e.Registration.StartDate = testNow.AddDate(0, 0, -9)
				e.Registration.EndDate = testNow.AddDate(0, 0, -1)
			},
			wantReason: types.ReasonWindowClosed,
		},
		{
			name: "first-year student against years 2-3",
			user: student("CSE", "BTech", 1, "A"),
			mutate: func(e *types.Event) {
				e.Eligibility.Years = []int{2, 3}
			},
			wantReason: types.ReasonIneligibleYear,
		},
		{
			name: "event at capacity",
			user: student("CSE", "BTech", 2, "A"),
			mutate: func(e *types.Event) {
				e.Registration.MaxParticipants = 2
				e.Registration.CurrentCount = 2
			},
			wantReason: types.ReasonCapacityExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(10, 0)
			tt.mutate(&event)
			s := newFakeStore(event, tt.user)
			svc := newAdmissionService(s, nil)

			result, err := svc.Admit(context.Background(), tt.user.ID, event.ID)
			if err != nil {
				t.Fatalf("Admit() error = %v", err)
			}
			if result.Outcome != types.OutcomeRejected {
				t.Fatalf("outcome = %v, want rejected", result.Outcome)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", result.Reason, tt.wantReason)
			}
			if got := s.currentCount(); got != event.Registration.CurrentCount {
				t.Errorf("current count changed on rejection: %d", got)
			}
		})
	}
}

func TestAdmitEligibleStudent(t *testing.T) {
	event := testEvent(10, 0)
	event.Eligibility.Years = []int{2, 3}
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(event, user)
	pub := &fakePublisher{}
	svc := newAdmissionService(s, pub)

	result, err := svc.Admit(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if !result.Admitted() {
		t.Fatalf("outcome = %v (%q), want admitted", result.Outcome, result.Reason)
	}
	if result.Registration == nil || result.Registration.Status != types.RegistrationConfirmed {
		t.Fatalf("registration = %+v, want confirmed record", result.Registration)
	}
	if got := s.currentCount(); got != 1 {
		t.Errorf("current count = %d, want 1", got)
	}
	if len(pub.channels) != 1 || pub.channels[0] != ChannelRegistrationConfirmed {
		t.Errorf("published channels = %v, want [%s]", pub.channels, ChannelRegistrationConfirmed)
	}
}

func TestAdmitNotRequired(t *testing.T) {
	event := testEvent(1, 1)
	event.Registration.Required = false
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(event, user)
	svc := newAdmissionService(s, nil)

	result, err := svc.Admit(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if result.Outcome != types.OutcomeNotRequired {
		t.Fatalf("outcome = %v, want not_required", result.Outcome)
	}
	if result.Registration != nil {
		t.Errorf("no registration record should be created, got %+v", result.Registration)
	}
	if got := s.currentCount(); got != 1 {
		t.Errorf("current count = %d, want untouched 1", got)
	}
}

func TestAdmitIsIdempotentPerUser(t *testing.T) {
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(testEvent(10, 0), user)
	svc := newAdmissionService(s, nil)

	first, err := svc.Admit(context.Background(), user.ID, 10)
	if err != nil || !first.Admitted() {
		t.Fatalf("first Admit() = %+v, %v", first, err)
	}

	second, err := svc.Admit(context.Background(), user.ID, 10)
	if err != nil {
		t.Fatalf("second Admit() error = %v", err)
	}
	if second.Outcome != types.OutcomeRejected || second.Reason != types.ReasonAlreadyRegistered {
		t.Fatalf("second Admit() = %+v, want already_registered rejection", second)
	}
	if got := s.currentCount(); got != 1 {
		t.Errorf("current count = %d, want 1 after duplicate attempt", got)
	}
}

func TestAdmitLostRaceBecomesCapacityRejection(t *testing.T) {
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(testEvent(1, 0), user)
	s.conflictsLeft = 1
	s.fillOnConflict = true
	pub := &fakePublisher{}
	svc := newAdmissionService(s, pub)

	result, err := svc.Admit(context.Background(), user.ID, 10)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if result.Outcome != types.OutcomeRejected || result.Reason != types.ReasonCapacityExceeded {
		t.Fatalf("Admit() = %+v, want capacity_exceeded after lost race", result)
	}
	if len(pub.channels) != 0 {
		t.Errorf("nothing should be published on rejection, got %v", pub.channels)
	}
}

func TestAdmitRetriesThenSucceeds(t *testing.T) {
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(testEvent(5, 0), user)
	s.conflictsLeft = 1
	svc := newAdmissionService(s, nil)

	result, err := svc.Admit(context.Background(), user.ID, 10)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if !result.Admitted() {
		t.Fatalf("Admit() = %+v, want admission on retry", result)
	}
}

func TestAdmitContentionExhaustsRetries(t *testing.T) {
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(testEvent(5, 0), user)
	s.conflictsLeft = maxAdmitAttempts
	svc := newAdmissionService(s, nil)

	_, err := svc.Admit(context.Background(), user.ID, 10)
	if !errors.Is(err, ErrAdmissionContention) {
		t.Fatalf("Admit() error = %v, want ErrAdmissionContention", err)
	}
}

func TestAdmitConcurrentNeverOverbooks(t *testing.T) {
	const capacity = 5
	const requests = 50

	event := testEvent(capacity, 0)
	users := make([]types.User, 0, requests)
	for i := 1; i <= requests; i++ {
		u := student("CSE", "BTech", 2, "A")
		u.ID = i
		users = append(users, u)
	}
	s := newFakeStore(event, users...)
	svc := newAdmissionService(s, nil)

	var admitted, rejected, failed int32
	var wg sync.WaitGroup
	wg.Add(requests)
	for i := 1; i <= requests; i++ {
		go func(userID int) {
			defer wg.Done()
			result, err := svc.Admit(context.Background(), userID, event.ID)
			switch {
			case err != nil:
				atomic.AddInt32(&failed, 1)
			case result.Admitted():
				atomic.AddInt32(&admitted, 1)
			case result.Reason == types.ReasonCapacityExceeded:
				atomic.AddInt32(&rejected, 1)
			default:
				atomic.AddInt32(&failed, 1)
			}
		}(i)
	}
	wg.Wait()

	if admitted != capacity {
		t.Errorf("admitted = %d, want exactly %d", admitted, capacity)
	}
	if rejected != requests-capacity {
		t.Errorf("capacity rejections = %d, want %d", rejected, requests-capacity)
	}
	if failed != 0 {
		t.Errorf("unexpected failures = %d", failed)
	}
	if got := s.currentCount(); got != capacity {
		t.Errorf("final count = %d, want %d", got, capacity)
	}
}

func TestAdmitSameUserConcurrentlyAdmitsOnce(t *testing.T) {
	user := student("CSE", "BTech", 2, "A")
	s := newFakeStore(testEvent(1, 0), user)
	svc := newAdmissionService(s, nil)

	const attempts = 8
	results := make(chan types.AdmissionResult, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			result, err := svc.Admit(context.Background(), user.ID, 10)
			if err != nil {
				t.Errorf("Admit() error = %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	var admitted int
	for result := range results {
		if result.Admitted() {
			admitted++
		} else if result.Reason != types.ReasonAlreadyRegistered && result.Reason != types.ReasonCapacityExceeded {
			t.Errorf("unexpected rejection reason %q", result.Reason)
		}
	}
	if admitted != 1 {
		t.Errorf("admitted = %d, want exactly 1", admitted)
	}
	if got := s.currentCount(); got != 1 {
		t.Errorf("final count = %d, want 1", got)
	}
}
