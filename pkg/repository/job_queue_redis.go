package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultQueueName = "metadata"
	defaultLockTTL   = 5 * time.Minute
)

// The list holds ids in arrival order, the hash holds the pending op of each id.
// An id is pushed onto the list only when it was not already pending.
var enqueueScript = redis.NewScript(`
local added = redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
if added == 1 then
	redis.call('LPUSH', KEYS[1], ARGV[1])
end
return added
`)

var popScript = redis.NewScript(`
local id = redis.call('RPOP', KEYS[1])
if not id then
	return false
end
local op = redis.call('HGET', KEYS[2], id)
redis.call('HDEL', KEYS[2], id)
if not op then
	op = 'index'
end
return {id, op}
`)

// RedisJobQueue implements JobQueue using Redis
type RedisJobQueue struct {
	rdb     *common.RedisClient
	lock    *common.RedisLock
	name    string
	lockTTL time.Duration
}

// NewRedisJobQueue creates a new Redis-based indexing queue
func NewRedisJobQueue(rdb *common.RedisClient, name string, lockTTL time.Duration) *RedisJobQueue {
	if name == "" {
		name = defaultQueueName
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisJobQueue{
		rdb:     rdb,
		lock:    common.NewRedisLock(rdb),
		name:    name,
		lockTTL: lockTTL,
	}
}

func (q *RedisJobQueue) Name() string {
	return q.name
}

// Enqueue adds an index job for id
func (q *RedisJobQueue) Enqueue(ctx context.Context, id catalog.IntID) error {
	return q.EnqueueJob(ctx, catalog.Job{ID: id, Op: catalog.JobOpIndex})
}

// EnqueueJob adds a job; a pending job for the same id keeps its position and takes the new op
func (q *RedisJobQueue) EnqueueJob(ctx context.Context, job catalog.Job) error {
	if job.Op == "" {
		job.Op = catalog.JobOpIndex
	}

	keys := []string{common.Keys.QueueList(q.name), common.Keys.QueueHash(q.name)}
	if err := enqueueScript.Run(ctx, q.rdb, keys, int64(job.ID), string(job.Op)).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Pop removes the oldest job, returning nil when the queue is empty
func (q *RedisJobQueue) Pop(ctx context.Context) (*catalog.Job, error) {
	keys := []string{common.Keys.QueueList(q.name), common.Keys.QueueHash(q.name)}
	result, err := popScript.Run(ctx, q.rdb, keys).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	id, err := strconv.ParseInt(result[0], 10, 64)
	if err != nil {
		log.Warn().Str("queue", q.name).Str("value", result[0]).Msg("dropping malformed job id")
		return q.Pop(ctx)
	}

	return &catalog.Job{ID: catalog.IntID(id), Op: catalog.JobOp(result[1])}, nil
}

// Len returns the number of pending jobs
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, common.Keys.QueueList(q.name)).Result()
}

// Keys returns the pending ids, oldest first
func (q *RedisJobQueue) Keys(ctx context.Context) ([]catalog.IntID, error) {
	values, err := q.rdb.LRange(ctx, common.Keys.QueueList(q.name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	ids := make([]catalog.IntID, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		id, err := strconv.ParseInt(values[i], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, catalog.IntID(id))
	}
	return ids, nil
}

// Clear drops every pending job
func (q *RedisJobQueue) Clear(ctx context.Context) error {
	if err := q.rdb.Del(ctx, common.Keys.QueueList(q.name), common.Keys.QueueHash(q.name)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// LockDrain takes the queue's drain lock without waiting. The lock is refreshed
// every third of its TTL until released, so long drains keep it.
func (q *RedisJobQueue) LockDrain(ctx context.Context) (func(), error) {
	key := common.Keys.QueueLock(q.name)
	err := q.lock.Acquire(ctx, key, common.RedisLockOptions{TtlS: int(q.lockTTL.Seconds()), Retries: 0})
	if err != nil {
		return nil, err
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go q.keepDrainLock(refreshCtx, key, done)

	return func() {
		cancel()
		<-done
		if err := q.lock.Release(key); err != nil && !errors.Is(err, common.ErrLockNotHeld) {
			log.Warn().Err(err).Str("queue", q.name).Msg("failed to release drain lock")
		}
	}, nil
}

func (q *RedisJobQueue) keepDrainLock(ctx context.Context, key string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(q.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.lock.Refresh(ctx, key, q.lockTTL); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("queue", q.name).Msg("failed to refresh drain lock")
			}
		}
	}
}
