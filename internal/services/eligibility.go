package services

import (
	"slices"

	"github.com/campusevents/apiserver/types"
)

// Evaluate decides whether a user satisfies an event's eligibility rules.
// Each non-empty rule slice is an allow-list its dimension must match; an
// empty slice leaves the dimension unrestricted. Dimensions are checked in
// the fixed order department, program, year, section, and the first failure
// is reported, so identical inputs always yield the identical reason.
//
// A user missing an attribute that a non-empty rule constrains (e.g. a staff
// member against a program rule) fails that dimension; absence is never a
// wildcard. Pure function of its inputs.
func Evaluate(user types.User, rules types.EligibilityRules) (bool, types.RejectionReason) {
	if len(rules.Departments) > 0 && !slices.Contains(rules.Departments, user.Department) {
		return false, types.ReasonIneligibleDepartment
	}
	if len(rules.Programs) > 0 && (user.Student == nil || !slices.Contains(rules.Programs, user.Student.Program)) {
		return false, types.ReasonIneligibleProgram
	}
	if len(rules.Years) > 0 && (user.Student == nil || !slices.Contains(rules.Years, user.Student.Year)) {
		return false, types.ReasonIneligibleYear
	}
	if len(rules.Sections) > 0 && (user.Student == nil || !slices.Contains(rules.Sections, user.Student.Section)) {
		return false, types.ReasonIneligibleSection
	}
	return true, ""
}

// hasCapacity reports whether another confirmed registration fits.
// A zero maximum means unlimited.
func hasCapacity(currentConfirmed, maxParticipants int) bool {
	return maxParticipants == 0 || currentConfirmed < maxParticipants
}
