package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

// Driver-neutral errors returned by every repository.
var (
	ErrNoRecord  = errors.New("no record")
	ErrDuplicate = errors.New("duplicate record")
)

const pqUniqueViolation = "23505"

// Translate maps driver errors to ErrNoRecord / ErrDuplicate and passes
// everything else through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoRecord
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
