// Package lock serializes ledger mutations per key (one key per user and per account).
//
// Keys are always acquired in ascending order and released in reverse, so two
// operations touching the same pair of accounts can never deadlock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotAcquired reports that a key could not be locked before giving up.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires exclusive access to a set of keys. The returned release func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

// UserKey and AccountKey zero-pad ids so that lexicographic order is numeric order.
func UserKey(id uint) string    { return fmt.Sprintf("wallet:user:%020d", id) }
func AccountKey(id uint) string { return fmt.Sprintf("wallet:account:%020d", id) }

// ordered sorts and deduplicates keys.
func ordered(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // buffered(1): holding the token means holding the lock
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = ordered(keys)
	held := make([]*slot, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			l.drop(keys[i], held[i])
		}
	}

	for _, key := range keys {
		s := l.acquire(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, s)
		case <-ctx.Done():
			l.drop(key, s)
			release()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		}
	}
	return release, nil
}
