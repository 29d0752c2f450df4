package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis locks keys with the RedLock algorithm so several wallet processes sharing one
// database serialize on the same accounts.
type Redis struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
	log    zerolog.Logger
}

func NewRedis(client goredislib.UniversalClient, expiry time.Duration, tries int, log zerolog.Logger) *Redis {
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		tries:  tries,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = ordered(keys)
	held := make([]*redsync.Mutex, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// context.Background: release even when the caller's ctx is already done
			if ok, err := held[i].UnlockContext(context.Background()); !ok || err != nil {
				r.log.Warn().Err(err).Str("key", held[i].Name()).Msg("failed to release lock")
			}
		}
	}

	for _, key := range keys {
		m := r.rs.NewMutex(key,
			redsync.WithExpiry(r.expiry),
			redsync.WithTries(r.tries),
			redsync.WithRetryDelay(50*time.Millisecond),
		)
		if err := m.LockContext(ctx); err != nil {
			release()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, err)
		}
		held = append(held, m)
	}
	return release, nil
}
