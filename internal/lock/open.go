package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/NgigiN/wallet/internal/config"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Open builds the configured backend. The returned close func releases its
// connections.
func Open(ctx context.Context, cfg config.LockConfig, log zerolog.Logger) (Locker, func() error, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(), func() error { return nil }, nil
	case "redis":
		client := goredislib.NewClient(&goredislib.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client, cfg.Expiry, cfg.Tries, log), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
}
