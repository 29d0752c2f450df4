package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NgigiN/wallet/internal/config"
	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysSortNumerically(t *testing.T) {
	keys := ordered([]string{AccountKey(10), AccountKey(9), UserKey(1), AccountKey(9)})
	assert.Equal(t, []string{AccountKey(9), AccountKey(10), UserKey(1)}, keys)
}

// exercise checks mutual exclusion: n goroutines increment a shared counter under the
// same pair of keys given in opposite orders.
func exercise(t *testing.T, l Locker) {
	t.Helper()
	const n = 20
	var (
		wg     sync.WaitGroup
		inside atomic.Int32
		total  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys := []string{AccountKey(1), AccountKey(2)}
			if i%2 == 1 {
				keys = []string{AccountKey(2), AccountKey(1)}
			}
			release, err := l.Lock(context.Background(), keys...)
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			assert.Equal(t, int32(1), inside.Add(1))
			total++
			inside.Add(-1)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, total)
}

func TestLocalExclusion(t *testing.T) {
	exercise(t, NewLocal())
}

func TestLocalDisjointKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), AccountKey(1))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := l.Lock(ctx, AccountKey(2))
	require.NoError(t, err)
	other()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), AccountKey(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, AccountKey(0), AccountKey(1))
	assert.ErrorIs(t, err, ErrNotAcquired)

	// the partially acquired key 0 must have been released
	release()
	again, err := l.Lock(context.Background(), AccountKey(0), AccountKey(1))
	require.NoError(t, err)
	again()
	assert.Empty(t, l.slots)
}

func newRedis(t *testing.T, tries int) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, 5*time.Second, tries, zerolog.Nop())
}

func TestRedisExclusion(t *testing.T) {
	exercise(t, newRedis(t, 500))
}

func TestRedisContention(t *testing.T) {
	r := newRedis(t, 1)
	release, err := r.Lock(context.Background(), AccountKey(1))
	require.NoError(t, err)

	_, err = r.Lock(context.Background(), AccountKey(1))
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	again, err := r.Lock(context.Background(), AccountKey(1))
	require.NoError(t, err)
	again()
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	l, closeFn, err := Open(ctx, config.LockConfig{Backend: "local"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, l)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	l, closeFn, err = Open(ctx, config.LockConfig{Backend: "redis", RedisAddr: mr.Addr(), Expiry: time.Second, Tries: 3}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, l)
	release, err := l.Lock(ctx, UserKey(1), AccountKey(2))
	require.NoError(t, err)
	release()
	assert.NoError(t, closeFn())

	_, _, err = Open(ctx, config.LockConfig{Backend: "zookeeper"}, zerolog.Nop())
	assert.Error(t, err)
}
