package types

import (
	"errors"
	"fmt"
	"time"
)

// Role is a user's authorization level within the system.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent, RoleTrainer:
		return true
	}
	return false
}

// IsStaff reports whether the role is a staff role (admin, faculty, trainer).
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleFaculty || r == RoleTrainer
}

// User represents an account in the system.
// It contains identity, role, and role-specific profile data.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// Department is the academic department the user belongs to.
	Department string `json:"department" db:"department"`

	// Student carries student-specific attributes. It is set exactly when
	// Role is RoleStudent.
	Student *StudentProfile `json:"student,omitempty" db:"student"`

	// Staff carries staff-specific attributes. It is set exactly when Role
	// is a staff role.
	Staff *StaffProfile `json:"staff,omitempty" db:"staff"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StudentProfile holds the attributes that only exist for student accounts.
type StudentProfile struct {
	// Program is the degree program the student is enrolled in.
	Program string `json:"program" db:"program"`

	// Year is the student's year of study, 1 through 4.
	Year int `json:"year" db:"year"`

	// Section is the student's section, a single uppercase letter.
	Section string `json:"section" db:"section"`
}

// StaffProfile holds the attributes that only exist for staff accounts.
type StaffProfile struct {
	// EmployeeID is the institution-issued employee identifier.
	EmployeeID string `json:"employee_id" db:"employee_id"`
}

// Validate checks the role/profile invariants: students must carry a
// student profile with a valid year and section, staff must carry a staff
// profile with an employee identifier.
func (u User) Validate() error {
	if !u.Role.Valid() {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	switch {
	case u.Role == RoleStudent:
		if u.Staff != nil {
			return errors.New("student account must not carry a staff profile")
		}
		if u.Student == nil {
			return errors.New("student account requires a student profile")
		}
		if u.Student.Year < 1 || u.Student.Year > 4 {
			return fmt.Errorf("year must be between 1 and 4, got %d", u.Student.Year)
		}
		if len(u.Student.Section) != 1 || u.Student.Section[0] < 'A' || u.Student.Section[0] > 'Z' {
			return fmt.Errorf("section must be a single uppercase letter, got %q", u.Student.Section)
		}
	default:
		if u.Student != nil {
			return errors.New("staff account must not carry a student profile")
		}
		if u.Staff == nil || u.Staff.EmployeeID == "" {
			return errors.New("staff account requires an employee identifier")
		}
	}
	return nil
}
