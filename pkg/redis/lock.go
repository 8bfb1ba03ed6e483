package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the context ends before the lock is free.
var ErrLockNotAcquired = errors.New("redis lock not acquired")

// 소유자 토큰이 일치할 때만 삭제
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker SET NX PX 기반 분산 락. TTL이 지나면 자동 해제된다.
type Locker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewLocker(c *redis.Client, prefix string, ttl time.Duration) *Locker {
	return &Locker{client: c, prefix: prefix, ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock blocks until key is held or ctx ends. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			logger.Warn("Gave up waiting for redis lock", map[string]interface{}{
				"key": fullKey,
			})
			return nil, ErrLockNotAcquired
		case <-time.After(l.retry):
		}
	}

	return func() {
		// 요청 컨텍스트가 이미 끝났어도 해제는 시도한다
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
			logger.Error("Failed to release redis lock", err, map[string]interface{}{
				"key": fullKey,
			})
		}
	}, nil
}
