package types

import "testing"

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{
			name: "valid student",
			user: User{
				Role:    RoleStudent,
				Student: &StudentProfile{Program: "BTech", Year: 2, Section: "B"},
			},
		},
		{
			name: "valid faculty",
			user: User{
				Role:  RoleFaculty,
				Staff: &StaffProfile{EmployeeID: "EMP-12"},
			},
		},
		{
			name:    "student without profile",
			user:    User{Role: RoleStudent},
			wantErr: true,
		},
		{
			name: "student year out of range",
			user: User{
				Role:    RoleStudent,
				Student: &StudentProfile{Year: 5, Section: "A"},
			},
			wantErr: true,
		},
		{
			name: "student section not a single uppercase letter",
			user: User{
				Role:    RoleStudent,
				Student: &StudentProfile{Year: 3, Section: "ab"},
			},
			wantErr: true,
		},
		{
			name:    "trainer without employee id",
			user:    User{Role: RoleTrainer, Staff: &StaffProfile{}},
			wantErr: true,
		},
		{
			name: "staff carrying student profile",
			user: User{
				Role:    RoleAdmin,
				Staff:   &StaffProfile{EmployeeID: "EMP-1"},
				Student: &StudentProfile{Year: 1, Section: "A"},
			},
			wantErr: true,
		},
		{
			name:    "unknown role",
			user:    User{Role: "guest"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
