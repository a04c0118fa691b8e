package taskqueue

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a persistent task queue backed by a Redis sorted set,
// scored by each task's NotBefore time so delayed tasks become eligible
// on schedule. Claiming is a ZRANGEBYSCORE + ZREM pair; ZREM returning
// zero means another worker won the race and we retry.
type RedisQueue struct {
	client       *redis.Client
	key          string
	pollInterval time.Duration
}

// NewRedisQueue creates a RedisQueue with the default poll interval.
// prefix is optional but recommended (e.g. "disparo:").
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	return NewRedisQueueWithPollInterval(client, prefix, defaultPollInterval)
}

// NewRedisQueueWithPollInterval is like NewRedisQueue but with an
// explicit interval between eligibility polls when the queue is empty.
func NewRedisQueueWithPollInterval(client *redis.Client, prefix string, pollInterval time.Duration) *RedisQueue {
	if prefix == "" {
		prefix = "disparo:"
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &RedisQueue{
		client:       client,
		key:          prefix + "tasks",
		pollInterval: pollInterval,
	}
}

// Ensure RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	notBefore := t.NotBefore
	if notBefore.IsZero() {
		notBefore = t.EnqueuedAt
	}

	data, err := EncodeTask(t)
	if err != nil {
		return err
	}

	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(notBefore.UnixNano()),
		Member: string(data),
	}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		now := time.Now().UnixNano()

		members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(now, 10),
			Count: 1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		if len(members) == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(q.pollInterval):
				continue
			}
		}

		removed, err := q.client.ZRem(ctx, q.key, members[0]).Result()
		if err != nil {
			return nil, err
		}
		if removed == 0 {
			// Lost the claim race; try again.
			continue
		}

		return DecodeTask([]byte(members[0]))
	}
}

func (q *RedisQueue) Len() int {
	n, err := q.client.ZCard(context.Background(), q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
