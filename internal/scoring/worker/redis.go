package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fintrust/pkg/platform/sentinel"
)

const (
	defaultQueueKey   = "fintrust:scoring:queue"
	lockKeyPrefix     = "fintrust:scoring:lock:"
	defaultPollWindow = 2 * time.Second
	defaultLockTTL    = 30 * time.Second
)

// RedisQueue is a durable list-backed queue: LPUSH to enqueue, BRPOP to take.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

type RedisQueueOption func(*RedisQueue)

func WithQueueKey(key string) RedisQueueOption {
	return func(q *RedisQueue) {
		q.key = key
	}
}

// WithPollWindow bounds each BRPOP so shutdown is noticed promptly.
func WithPollWindow(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		q.poll = d
	}
}

func NewRedisQueue(client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{client: client, key: defaultQueueKey, poll: defaultPollWindow}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) Enqueue(ctx context.Context, applicationID string) error {
	if err := q.client.LPush(ctx, q.key, applicationID).Err(); err != nil {
		return fmt.Errorf("enqueue scoring job: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		switch {
		case err == nil:
			// BRPOP replies with [key, value].
			return res[1], nil
		case errors.Is(err, redis.Nil):
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		case ctx.Err() != nil:
			return "", ctx.Err()
		default:
			return "", fmt.Errorf("dequeue scoring job: %w", err)
		}
	}
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a cross-instance application lock using SET NX with a TTL.
// The TTL bounds how long a crashed holder blocks the application.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := lockKeyPrefix + key
	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire scoring lock: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}
	return func() {
		// Release on a fresh context so a cancelled job still frees the key.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
	}, nil
}
