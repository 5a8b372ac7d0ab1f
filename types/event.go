package types

import (
	"fmt"
	"time"
)

// EventStatus is a stage in the event lifecycle.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// eventTransitions enumerates the allowed lifecycle moves:
// draft→pending→approved|rejected→ongoing→completed|cancelled.
var eventTransitions = map[EventStatus][]EventStatus{
	EventDraft:    {EventPending},
	EventPending:  {EventApproved, EventRejected},
	EventApproved: {EventOngoing, EventCancelled},
	EventOngoing:  {EventCompleted, EventCancelled},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s EventStatus) CanTransition(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsRegistrations reports whether an event in this lifecycle stage may
// admit registrations at all.
func (s EventStatus) AcceptsRegistrations() bool {
	return s == EventApproved || s == EventOngoing
}

// Event represents a managed event in the system.
type Event struct {
	// ID is the unique identifier of the event.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the event.
	Title string `json:"title" db:"title"`

	// Description contains the full event description shown to users.
	Description string `json:"description" db:"description"`

	// Location is where the event takes place.
	Location string `json:"location" db:"location"`

	// Category is a free-form label used for grouping and filtering.
	Category string `json:"category" db:"category"`

	// OrganizerID is the identifier of the staff user who created the event.
	OrganizerID int `json:"organizer_id" db:"organizer_id"`

	// Status is the event's current lifecycle stage.
	Status EventStatus `json:"status" db:"status"`

	// Eligibility restricts which users may register. Empty rule
	// slices impose no restriction on their dimension.
	Eligibility EligibilityRules `json:"eligibility" db:"eligibility"`

	// Registration holds the event's registration window and capacity state.
	Registration RegistrationWindow `json:"registration" db:"registration"`

	// PosterKey is the object-storage key of the event poster, if uploaded.
	PosterKey string `json:"poster_key,omitempty" db:"poster_key"`

	// StartsAt and EndsAt bound the event itself, not its registration window.
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`

	// CreatedAt is the timestamp at which the event was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the event.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EligibilityRules is a per-dimension allow-list restricting who may
// register. A nil or empty slice leaves the dimension unrestricted.
type EligibilityRules struct {
	Departments []string `json:"departments"`
	Programs    []string `json:"programs"`
	Years       []int    `json:"years"`
	Sections    []string `json:"sections"`
}

// RegistrationWindow holds an event's registration schedule and capacity
// counters.
type RegistrationWindow struct {
	// Required indicates whether users must register to attend. When false
	// the event is open attendance and no registration records are kept.
	Required bool `json:"required" db:"required"`

	// StartDate and EndDate bound the period during which registration is
	// accepted.
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	// MaxParticipants caps confirmed registrations. Zero means unlimited.
	MaxParticipants int `json:"max_participants" db:"max_participants"`

	// IsOpen is an explicit organizer switch. When false, registration is
	// closed regardless of the dates.
	IsOpen bool `json:"is_open" db:"is_open"`

	// CurrentCount is the number of confirmed registrations. It is mutated
	// only through conditional updates in the store.
	CurrentCount int `json:"current_count" db:"current_count"`
}

// Validate checks basic event invariants before persistence.
func (e Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if e.Registration.MaxParticipants < 0 {
		return fmt.Errorf("max participants must not be negative, got %d", e.Registration.MaxParticipants)
	}
	if e.Registration.Required && e.Registration.EndDate.Before(e.Registration.StartDate) {
		return fmt.Errorf("registration end date precedes start date")
	}
	for _, year := range e.Eligibility.Years {
		if year < 1 || year > 4 {
			return fmt.Errorf("eligibility year must be between 1 and 4, got %d", year)
		}
	}
	return nil
}
