// File: utils/cache.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockClient is the Redis client used for record locks.
var LockClient *redis.Client

// InitLockCache initializes the Redis client for record locks.
func InitLockCache() error {
	LockClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisLockDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return LockClient.Ping(ctx).Err()
}

// ErrLocked is returned when another worker holds the record lock.
var ErrLocked = errors.New("record is locked by another worker")

// Locker guards a record's read-modify-write. Locks are advisory: the store
// precondition on the write stays authoritative.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NoopLocker never blocks. Used when Redis is not configured.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// RedisLocker takes a SET NX lock with a TTL so a crashed holder cannot
// wedge a record forever.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	key = "lock:" + key
	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil {
			GetLogger().Sugar().Warnf("failed to release lock %s: %v", key, err)
		}
	}, nil
}

// LockAdvisory takes key on l. A record already held by another worker is an
// error; an unreachable Redis is logged and ignored because the store-side
// checks still protect the record.
func LockAdvisory(ctx context.Context, l Locker, key string) (func(), error) {
	unlock, err := l.Lock(ctx, key)
	switch {
	case err == nil:
		return unlock, nil
	case errors.Is(err, ErrLocked):
		return nil, fmt.Errorf("could not lock %s: %w", key, err)
	default:
		GetLogger().Warn("lock unavailable, continuing without it",
			zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
}
