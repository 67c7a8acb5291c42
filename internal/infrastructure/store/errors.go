package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("unique constraint violated")
	ErrReferenced        = errors.New("record is still referenced")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errors.Join(ErrDuplicate, err)
		case pqForeignKeyViolation:
			return errors.Join(ErrReferenced, err)
		}
	}
	return err
}
