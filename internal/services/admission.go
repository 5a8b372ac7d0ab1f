package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
)

// maxAdmitAttempts bounds how many times a lost capacity race is retried
// before the request is surfaced as a system error.
const maxAdmitAttempts = 3

// ChannelRegistrationConfirmed is the broker channel admission publishes to.
const ChannelRegistrationConfirmed = "registration.confirmed"

// ErrAdmissionContention is returned when every admission attempt lost the
// capacity race to concurrent registrants.
var ErrAdmissionContention = errors.New("admission retries exhausted")

// AdmissionUserRepository is the user lookup the admission engine consumes.
type AdmissionUserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// AdmissionEventRepository is the event lookup the admission engine consumes.
type AdmissionEventRepository interface {
	Get(ctx context.Context, id int) (types.Event, error)
}

// AdmissionRegistrationRepository is the registration store the admission
// engine consumes. CreateConfirmed must perform the conditional capacity
// increment and the insert as one atomic unit, returning
// store.ErrCapacityConflict when the increment affects no rows and
// store.ErrDuplicate when the insert hits the active-registration index.
type AdmissionRegistrationRepository interface {
	FindActive(ctx context.Context, userID, eventID int) (types.Registration, error)
	CreateConfirmed(ctx context.Context, userID, eventID int) (types.Registration, error)
}

// Publisher emits notification messages. Satisfied by *mq.MQ.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// AdmissionService decides, for one user and one event, whether a
// registration is admitted, enforcing the window, eligibility and capacity
// constraints in that order and short-circuiting on the first failure.
//
// Business rejections come back inside the AdmissionResult; the error return
// carries only not-found and system failures.
type AdmissionService struct {
	users         AdmissionUserRepository
	events        AdmissionEventRepository
	registrations AdmissionRegistrationRepository
	publisher     Publisher
	now           func() time.Time
}

func NewAdmissionService(
	users AdmissionUserRepository,
	events AdmissionEventRepository,
	registrations AdmissionRegistrationRepository,
	publisher Publisher,
) *AdmissionService {
	return &AdmissionService{
		users:         users,
		events:        events,
		registrations: registrations,
		publisher:     publisher,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Used by tests.
func (s *AdmissionService) WithClock(now func() time.Time) *AdmissionService {
	s.now = now
	return s
}

// Admit processes one registration request. Steps 1 through 5 are pure
// reads; the only write is the atomic create-and-increment at the end. When
// that write reports a lost capacity race the whole decision is re-run
// against fresh state, up to maxAdmitAttempts times.
func (s *AdmissionService) Admit(ctx context.Context, userID, eventID int) (types.AdmissionResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.AdmissionResult{}, err
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return types.AdmissionResult{}, err
	}

	if !event.Status.AcceptsRegistrations() {
		return rejected(types.ReasonEventNotOpen), nil
	}

	for attempt := 0; attempt < maxAdmitAttempts; attempt++ {
		if _, err := s.registrations.FindActive(ctx, userID, eventID); err == nil {
			return rejected(types.ReasonAlreadyRegistered), nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return types.AdmissionResult{}, err
		}

		switch CheckWindow(event.Registration, s.now()) {
		case WindowNotRequired:
			// Open attendance: admission is moot, nothing is recorded.
			return types.AdmissionResult{Outcome: types.OutcomeNotRequired}, nil
		case WindowNotYetOpen:
			return rejected(types.ReasonNotYetOpen), nil
		case WindowClosed:
			return rejected(types.ReasonWindowClosed), nil
		}

		if ok, reason := Evaluate(user, event.Eligibility); !ok {
			return rejected(reason), nil
		}

		if !hasCapacity(event.Registration.CurrentCount, event.Registration.MaxParticipants) {
			return rejected(types.ReasonCapacityExceeded), nil
		}

		reg, err := s.registrations.CreateConfirmed(ctx, userID, eventID)
		switch {
		case err == nil:
			s.publishConfirmed(ctx, reg)
			return types.AdmissionResult{Outcome: types.OutcomeAdmitted, Registration: &reg}, nil
		case errors.Is(err, store.ErrDuplicate):
			return rejected(types.ReasonAlreadyRegistered), nil
		case errors.Is(err, store.ErrCapacityConflict):
			// Lost the race. Re-read the event so the next pass sees the
			// winner's count and can reject on capacity instead of spinning.
			event, err = s.events.Get(ctx, eventID)
			if err != nil {
				return types.AdmissionResult{}, err
			}
		default:
			return types.AdmissionResult{}, err
		}
	}

	return types.AdmissionResult{}, ErrAdmissionContention
}

func rejected(reason types.RejectionReason) types.AdmissionResult {
	return types.AdmissionResult{Outcome: types.OutcomeRejected, Reason: reason}
}

// publishConfirmed emits a best-effort notification; delivery failures never
// fail an admission that already committed.
func (s *AdmissionService) publishConfirmed(ctx context.Context, reg types.Registration) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(reg)
	if err != nil {
		return
	}
	_, _ = s.publisher.Publish(ctx, ChannelRegistrationConfirmed, data, map[string]string{
		"event": "registration.confirmed",
	})
}
