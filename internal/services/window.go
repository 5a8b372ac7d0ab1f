package services

import (
	"time"

	"github.com/campusevents/apiserver/types"
)

// WindowState is the outcome of checking an event's registration window
// against a point in time.
type WindowState string

const (
	// WindowOpen means registration is currently accepted.
	WindowOpen WindowState = "open"

	// WindowNotYetOpen means the window has not started.
	WindowNotYetOpen WindowState = "not_yet_open"

	// WindowClosed means the window has ended or the organizer closed it.
	WindowClosed WindowState = "closed"

	// WindowNotRequired means the event does not take registrations at all;
	// attendance is open.
	WindowNotRequired WindowState = "not_required"
)

// CheckWindow evaluates the registration window at the given instant. The
// organizer's IsOpen switch overrides the dates; the window itself is the
// inclusive interval [StartDate, EndDate]. Pure function of its inputs.
func CheckWindow(reg types.RegistrationWindow, now time.Time) WindowState {
	if !reg.Required {
		return WindowNotRequired
	}
	if !reg.IsOpen {
		return WindowClosed
	}
	if now.Before(reg.StartDate) {
		return WindowNotYetOpen
	}
	if now.After(reg.EndDate) {
		return WindowClosed
	}
	return WindowOpen
}
