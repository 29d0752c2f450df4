package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/NgigiN/wallet/internal/storage"
)

// Every error returned by the engine wraps exactly one of these kinds.
var (
	ErrNotFound      = storage.ErrNotFound
	ErrConflictRetry = storage.ErrConflictRetry
	ErrStoreFailure  = storage.ErrStoreFailure
	ErrInvalid       = storage.ErrInvalid
)

// RetryConflicts runs op again while it fails with ErrConflictRetry, at most attempts
// times in total (at least once), backing off a little more after every conflict. It is a helper for
// callers of the engine: AddTransaction and DeleteTransaction never retry by themselves.
func RetryConflicts(ctx context.Context, attempts int, op func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); !errors.Is(err, ErrConflictRetry) || i == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		}
	}
	return err
}
