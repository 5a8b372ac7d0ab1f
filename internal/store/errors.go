package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with the active
// registration unique index.
var ErrDuplicate = errors.New("duplicate registration")

// ErrCapacityConflict is returned when the conditional capacity update
// affects zero rows: the event filled up between the caller's read and the
// write.
var ErrCapacityConflict = errors.New("capacity conflict")

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
