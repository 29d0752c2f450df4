package storage

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrNotFound reports an unknown user, an inactive or unknown account or payment
	// method, or no active transaction at the requested position.
	ErrNotFound = errors.New("not found")
	// ErrConflictRetry reports a serialization conflict; the whole operation may be retried.
	ErrConflictRetry = errors.New("conflict, retry")
	// ErrStoreFailure reports an unrecoverable persistence error.
	ErrStoreFailure = errors.New("store failure")
	// ErrInvalid reports a malformed request (empty names, negative amounts, bad rules).
	ErrInvalid = errors.New("invalid request")
	// ErrDuplicate reports a name already used by an active account or payment method.
	ErrDuplicate = errors.New("already exists")
)

func classified(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrConflictRetry, ErrStoreFailure, ErrInvalid, ErrDuplicate} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Classify maps an error coming out of gorm or the SQLite driver onto the error kinds
// above. Already classified errors are returned unchanged.
func Classify(err error) error {
	if err == nil || classified(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == sqlite3.ErrBusy, se.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", ErrConflictRetry, err)
		case se.ExtendedCode == sqlite3.ErrConstraintUnique:
			// a concurrent writer took the same display order or name
			return fmt.Errorf("%w: %w", ErrConflictRetry, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}

func notFound(what string, args ...any) error {
	return fmt.Errorf("%w: "+what, append([]any{ErrNotFound}, args...)...)
}
