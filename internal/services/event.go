package services

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/campusevents/apiserver/internal/storage"
	"github.com/campusevents/apiserver/types"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a lifecycle move is not allowed
// from the event's current status.
type ErrInvalidTransition struct {
	From, To types.EventStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot move event from %s to %s", e.From, e.To)
}

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context, status types.EventStatus, offset, limit int) ([]types.Event, int, error)
	Get(ctx context.Context, id int) (types.Event, error)
	Create(ctx context.Context, event types.Event) (types.Event, error)
	Update(ctx context.Context, event types.Event) (types.Event, error)
	UpdateStatus(ctx context.Context, id int, from, to types.EventStatus) error
	Delete(ctx context.Context, id int) error
}

// EventService encapsulates event use-cases: CRUD, the approval lifecycle,
// and poster storage.
type EventService struct {
	repo    EventRepository
	storage *storage.Storage
}

func NewEventService(repo EventRepository, objectStorage *storage.Storage) *EventService {
	return &EventService{repo: repo, storage: objectStorage}
}

func (s *EventService) List(ctx context.Context, status types.EventStatus, offset, limit int) ([]types.Event, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, status, offset, limit)
}

func (s *EventService) Get(ctx context.Context, id int) (types.Event, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new event in draft with an empty seat count.
func (s *EventService) Create(ctx context.Context, event types.Event) (types.Event, error) {
	event.Status = types.EventDraft
	event.Registration.CurrentCount = 0
	if err := event.Validate(); err != nil {
		return types.Event{}, err
	}
	return s.repo.Create(ctx, event)
}

func (s *EventService) Update(ctx context.Context, event types.Event) (types.Event, error) {
	if err := event.Validate(); err != nil {
		return types.Event{}, err
	}
	return s.repo.Update(ctx, event)
}

func (s *EventService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// Transition moves an event to the given lifecycle stage after validating
// the move against the current stage. The store matches the previous stage
// in its WHERE clause, so two racing transitions cannot both win.
func (s *EventService) Transition(ctx context.Context, id int, to types.EventStatus) (types.Event, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Event{}, err
	}
	if !event.Status.CanTransition(to) {
		return types.Event{}, ErrInvalidTransition{From: event.Status, To: to}
	}
	if err := s.repo.UpdateStatus(ctx, id, event.Status, to); err != nil {
		return types.Event{}, err
	}
	event.Status = to
	return event, nil
}

// UploadPoster stores the poster in object storage under a fresh key and
// records the key on the event.
func (s *EventService) UploadPoster(ctx context.Context, eventID int, filename string, r io.Reader, size int64, contentType string) (types.Event, error) {
	if s.storage == nil {
		return types.Event{}, fmt.Errorf("object storage is not configured")
	}

	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return types.Event{}, err
	}

	key := fmt.Sprintf("posters/%d/%s%s", eventID, uuid.NewString(), path.Ext(filename))
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.Event{}, err
	}

	previous := event.PosterKey
	event.PosterKey = key
	event, err = s.repo.Update(ctx, event)
	if err != nil {
		return types.Event{}, err
	}

	if previous != "" {
		_ = s.storage.Delete(ctx, previous)
	}
	return event, nil
}

// Poster opens a reader for the event's stored poster.
func (s *EventService) Poster(ctx context.Context, eventID int) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.PosterKey == "" {
		return nil, fmt.Errorf("event %d has no poster", eventID)
	}
	return s.storage.Get(ctx, event.PosterKey)
}
