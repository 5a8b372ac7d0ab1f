package types

import "time"

// RegistrationStatus is the state of a registration record.
type RegistrationStatus string

const (
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Registration links one user to one event. At most one non-cancelled
// registration may exist per (user, event) pair; the store enforces this
// with a partial unique index.
type Registration struct {
	// ID is the unique identifier of the registration.
	ID int64 `json:"id" db:"id"`

	// EventID is the identifier of the event registered for.
	EventID int `json:"event_id" db:"event_id"`

	// UserID is the identifier of the registered user.
	UserID int `json:"user_id" db:"user_id"`

	// Status is the registration state. Admission only ever produces
	// confirmed; waitlisted is reserved and never written.
	Status RegistrationStatus `json:"status" db:"status"`

	// Attended records whether the user was marked present at the event.
	Attended bool `json:"attended" db:"attended"`

	// AttendedAt is the time attendance was marked, if it was.
	AttendedAt *time.Time `json:"attended_at,omitempty" db:"attended_at"`

	// RegisteredAt is the time the registration was admitted.
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// RejectionReason is a stable machine-readable code explaining why an
// admission request was turned down.
type RejectionReason string

const (
	ReasonAlreadyRegistered RejectionReason = "already_registered"
	ReasonEventNotOpen      RejectionReason = "event_not_open"
	ReasonWindowClosed      RejectionReason = "window_closed"
	ReasonNotYetOpen        RejectionReason = "not_yet_open"
	ReasonCapacityExceeded  RejectionReason = "capacity_exceeded"

	// Ineligibility reasons carry the first failing dimension, checked in
	// the fixed order department, program, year, section.
	ReasonIneligibleDepartment RejectionReason = "ineligible:department"
	ReasonIneligibleProgram    RejectionReason = "ineligible:program"
	ReasonIneligibleYear       RejectionReason = "ineligible:year"
	ReasonIneligibleSection    RejectionReason = "ineligible:section"
)

// AdmissionOutcome classifies the result of an admission request.
type AdmissionOutcome string

const (
	// OutcomeAdmitted means a confirmed registration was created.
	OutcomeAdmitted AdmissionOutcome = "admitted"

	// OutcomeRejected means a business rule turned the request down.
	OutcomeRejected AdmissionOutcome = "rejected"

	// OutcomeNotRequired means the event does not require registration;
	// attendance is open and no registration record was created.
	OutcomeNotRequired AdmissionOutcome = "not_required"
)

// AdmissionResult is the discriminated outcome of one admission request.
// Business rejections are values of this type, never errors.
type AdmissionResult struct {
	Outcome AdmissionOutcome `json:"outcome"`

	// Registration is set only when Outcome is OutcomeAdmitted.
	Registration *Registration `json:"registration,omitempty"`

	// Reason is set only when Outcome is OutcomeRejected.
	Reason RejectionReason `json:"reason,omitempty"`
}

// Admitted reports whether the request produced a confirmed registration.
func (r AdmissionResult) Admitted() bool {
	return r.Outcome == OutcomeAdmitted
}
