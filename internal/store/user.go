package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/campusevents/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, name, role, department, program, year, section, employee_id, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	var program, section, employeeID sql.NullString
	var year sql.NullInt64
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Department,
		&program,
		&year,
		&section,
		&employeeID,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return types.User{}, err
	}

	if user.Role == types.RoleStudent {
		user.Student = &types.StudentProfile{
			Program: program.String,
			Year:    int(year.Int64),
			Section: section.String,
		}
	} else {
		user.Staff = &types.StaffProfile{EmployeeID: employeeID.String}
	}
	return user, nil
}

// profileColumns flattens the role-specific profile into nullable columns.
func profileColumns(user types.User) (program, section, employeeID sql.NullString, year sql.NullInt64) {
	if user.Student != nil {
		program = sql.NullString{String: user.Student.Program, Valid: true}
		section = sql.NullString{String: user.Student.Section, Valid: true}
		year = sql.NullInt64{Int64: int64(user.Student.Year), Valid: true}
	}
	if user.Staff != nil {
		employeeID = sql.NullString{String: user.Staff.EmployeeID, Valid: true}
	}
	return program, section, employeeID, year
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	program, section, employeeID, year := profileColumns(user)

	const query = `
		INSERT INTO users (username, email, name, role, department, program, year, section, employee_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.Role,
		user.Department,
		program,
		year,
		section,
		employeeID,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	program, section, employeeID, year := profileColumns(user)

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			name = $3,
			role = $4,
			department = $5,
			program = $6,
			year = $7,
			section = $8,
			employee_id = $9,
			password_hash = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.Role,
		user.Department,
		program,
		year,
		section,
		employeeID,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
