package services

import (
	"context"
	"errors"
	"testing"

	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
)

type fakeEventRepo struct {
	event types.Event
}

func (r *fakeEventRepo) List(ctx context.Context, status types.EventStatus, offset, limit int) ([]types.Event, int, error) {
	return []types.Event{r.event}, 1, nil
}

func (r *fakeEventRepo) Get(ctx context.Context, id int) (types.Event, error) {
	if id != r.event.ID {
		return types.Event{}, store.ErrNotFound
	}
	return r.event, nil
}

func (r *fakeEventRepo) Create(ctx context.Context, event types.Event) (types.Event, error) {
	event.ID = 1
	r.event = event
	return event, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event types.Event) (types.Event, error) {
	r.event = event
	return event, nil
}

func (r *fakeEventRepo) UpdateStatus(ctx context.Context, id int, from, to types.EventStatus) error {
	if id != r.event.ID || r.event.Status != from {
		return store.ErrNotFound
	}
	r.event.Status = to
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id int) error {
	if id != r.event.ID {
		return store.ErrNotFound
	}
	return nil
}

func TestEventTransitions(t *testing.T) {
	tests := []struct {
		from    types.EventStatus
		to      types.EventStatus
		allowed bool
	}{
		{types.EventDraft, types.EventPending, true},
		{types.EventPending, types.EventApproved, true},
		{types.EventPending, types.EventRejected, true},
		{types.EventApproved, types.EventOngoing, true},
		{types.EventApproved, types.EventCancelled, true},
		{types.EventOngoing, types.EventCompleted, true},
		{types.EventOngoing, types.EventCancelled, true},
		{types.EventDraft, types.EventApproved, false},
		{types.EventRejected, types.EventApproved, false},
		{types.EventCompleted, types.EventCancelled, false},
		{types.EventCancelled, types.EventOngoing, false},
		{types.EventPending, types.EventCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			repo := &fakeEventRepo{event: types.Event{ID: 1, Title: "Orientation", Status: tt.from}}
			svc := NewEventService(repo, nil)

			event, err := svc.Transition(context.Background(), 1, tt.to)
			if tt.allowed {
				if err != nil {
					t.Fatalf("Transition() error = %v", err)
				}
				if event.Status != tt.to {
					t.Errorf("status = %v, want %v", event.Status, tt.to)
				}
				return
			}

			var invalid ErrInvalidTransition
			if !errors.As(err, &invalid) {
				t.Fatalf("Transition() error = %v, want ErrInvalidTransition", err)
			}
			if repo.event.Status != tt.from {
				t.Errorf("status moved to %v on invalid transition", repo.event.Status)
			}
		})
	}
}

func TestCreateForcesDraftAndZeroCount(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewEventService(repo, nil)

	event, err := svc.Create(context.Background(), types.Event{
		Title:  "Hackathon",
		Status: types.EventApproved,
		Registration: types.RegistrationWindow{
			Required:     true,
			CurrentCount: 42,
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if event.Status != types.EventDraft {
		t.Errorf("status = %v, want draft", event.Status)
	}
	if event.Registration.CurrentCount != 0 {
		t.Errorf("current count = %d, want 0", event.Registration.CurrentCount)
	}
}
