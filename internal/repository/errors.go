package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrStaleRevision reports that a record advanced past the expected revision count.
	ErrStaleRevision = errors.New("record revision is stale")
	// ErrMissingReference reports a foreign key violation, e.g. marking a deleted record.
	ErrMissingReference = errors.New("referenced row does not exist")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto repository sentinels, leaving others untouched.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqForeignKeyViolation:
			return ErrMissingReference
		}
	}
	return err
}
