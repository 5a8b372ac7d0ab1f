package services

import (
	"testing"

	"github.com/campusevents/apiserver/types"
)

func student(department, program string, year int, section string) types.User {
	return types.User{
		ID:         1,
		Role:       types.RoleStudent,
		Department: department,
		Student: &types.StudentProfile{
			Program: program,
			Year:    year,
			Section: section,
		},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		user       types.User
		rules      types.EligibilityRules
		wantOK     bool
		wantReason types.RejectionReason
	}{
		{
			name:   "no rules admit anyone",
			user:   student("CSE", "BTech", 1, "A"),
			rules:  types.EligibilityRules{},
			wantOK: true,
		},
		{
			name:   "empty department rule imposes no filter",
			user:   student("Mechanical", "BTech", 2, "B"),
			rules:  types.EligibilityRules{Years: []int{2}},
			wantOK: true,
		},
		{
			name:       "department mismatch",
			user:       student("Mechanical", "BTech", 2, "B"),
			rules:      types.EligibilityRules{Departments: []string{"CSE", "ECE"}},
			wantOK:     false,
			wantReason: types.ReasonIneligibleDepartment,
		},
		{
			name:       "year mismatch",
			user:       student("CSE", "BTech", 1, "A"),
			rules:      types.EligibilityRules{Years: []int{2, 3}},
			wantOK:     false,
			wantReason: types.ReasonIneligibleYear,
		},
		{
			name:   "year match proceeds",
			user:   student("CSE", "BTech", 2, "A"),
			rules:  types.EligibilityRules{Years: []int{2, 3}},
			wantOK: true,
		},
		{
			name:       "section mismatch",
			user:       student("CSE", "BTech", 2, "C"),
			rules:      types.EligibilityRules{Sections: []string{"A", "B"}},
			wantOK:     false,
			wantReason: types.ReasonIneligibleSection,
		},
		{
			name: "first failing dimension wins",
			user: student("Mechanical", "MBA", 1, "C"),
			rules: types.EligibilityRules{
				Departments: []string{"CSE"},
				Programs:    []string{"BTech"},
				Years:       []int{2},
				Sections:    []string{"A"},
			},
			wantOK:     false,
			wantReason: types.ReasonIneligibleDepartment,
		},
		{
			name: "program reported before year and section",
			user: student("CSE", "MBA", 1, "C"),
			rules: types.EligibilityRules{
				Departments: []string{"CSE"},
				Programs:    []string{"BTech"},
				Years:       []int{2},
				Sections:    []string{"A"},
			},
			wantOK:     false,
			wantReason: types.ReasonIneligibleProgram,
		},
		{
			name: "staff without program is not a wildcard",
			user: types.User{
				ID:         2,
				Role:       types.RoleFaculty,
				Department: "CSE",
				Staff:      &types.StaffProfile{EmployeeID: "EMP-7"},
			},
			rules:      types.EligibilityRules{Programs: []string{"BTech"}},
			wantOK:     false,
			wantReason: types.ReasonIneligibleProgram,
		},
		{
			name: "staff passes department-only rule",
			user: types.User{
				ID:         2,
				Role:       types.RoleTrainer,
				Department: "CSE",
				Staff:      &types.StaffProfile{EmployeeID: "EMP-7"},
			},
			rules:  types.EligibilityRules{Departments: []string{"CSE"}},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Evaluate(tt.user, tt.rules)
			if ok != tt.wantOK {
				t.Fatalf("Evaluate() ok = %v, want %v (reason %q)", ok, tt.wantOK, reason)
			}
			if reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluateDeterministicReason(t *testing.T) {
	user := student("Mechanical", "MBA", 1, "C")
	rules := types.EligibilityRules{
		Departments: []string{"CSE"},
		Programs:    []string{"BTech"},
		Years:       []int{2},
		Sections:    []string{"A"},
	}

	_, first := Evaluate(user, rules)
	for i := 0; i < 100; i++ {
		if _, reason := Evaluate(user, rules); reason != first {
			t.Fatalf("reason changed between runs: %q then %q", first, reason)
		}
	}
}

func TestHasCapacity(t *testing.T) {
	tests := []struct {
		current, max int
		want         bool
	}{
		{0, 1, true},
		{1, 1, false},
		{2, 1, false},
		{99, 100, true},
		{0, 0, true},
		{100000, 0, true},
	}
	for _, tt := range tests {
		if got := hasCapacity(tt.current, tt.max); got != tt.want {
			t.Errorf("hasCapacity(%d, %d) = %v, want %v", tt.current, tt.max, got, tt.want)
		}
	}
}
