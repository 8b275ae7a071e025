package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobQueues(t *testing.T) map[string]JobQueue {
	t.Helper()

	redisQueue, err := NewRedisJobQueueForTest("test")
	require.NoError(t, err)

	return map[string]JobQueue{
		"redis":  redisQueue,
		"memory": NewMemoryJobQueue("test"),
	}
}

func TestJobQueue_FIFOAndDedup(t *testing.T) {
	for name, queue := range jobQueues(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, queue.Enqueue(ctx, 3))
			require.NoError(t, queue.Enqueue(ctx, 1))
			require.NoError(t, queue.Enqueue(ctx, 3))
			require.NoError(t, queue.EnqueueJob(ctx, catalog.Job{ID: 2, Op: catalog.JobOpUnindex}))

			n, err := queue.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			keys, err := queue.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []catalog.IntID{3, 1, 2}, keys)

			job, err := queue.Pop(ctx)
			require.NoError(t, err)
			assert.Equal(t, &catalog.Job{ID: 3, Op: catalog.JobOpIndex}, job)

			job, err = queue.Pop(ctx)
			require.NoError(t, err)
			assert.Equal(t, catalog.IntID(1), job.ID)

			job, err = queue.Pop(ctx)
			require.NoError(t, err)
			assert.Equal(t, &catalog.Job{ID: 2, Op: catalog.JobOpUnindex}, job)

			job, err = queue.Pop(ctx)
			require.NoError(t, err)
			assert.Nil(t, job)
		})
	}
}

func TestJobQueue_ReenqueueReplacesOp(t *testing.T) {
	for name, queue := range jobQueues(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, queue.Enqueue(ctx, 7))
			require.NoError(t, queue.Enqueue(ctx, 8))
			require.NoError(t, queue.EnqueueJob(ctx, catalog.Job{ID: 7, Op: catalog.JobOpUnindex}))

			job, err := queue.Pop(ctx)
			require.NoError(t, err)
			assert.Equal(t, &catalog.Job{ID: 7, Op: catalog.JobOpUnindex}, job)

			// Popped ids can be queued again
			require.NoError(t, queue.Enqueue(ctx, 7))
			keys, err := queue.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []catalog.IntID{8, 7}, keys)
		})
	}
}

func TestJobQueue_Clear(t *testing.T) {
	for name, queue := range jobQueues(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, queue.Enqueue(ctx, 1))
			require.NoError(t, queue.Enqueue(ctx, 2))
			require.NoError(t, queue.Clear(ctx))

			n, err := queue.Len(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			// Dedup state is cleared too
			require.NoError(t, queue.Enqueue(ctx, 1))
			n, err = queue.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestJobQueue_LockDrain(t *testing.T) {
	for name, queue := range jobQueues(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			release, err := queue.LockDrain(ctx)
			require.NoError(t, err)

			_, err = queue.LockDrain(ctx)
			assert.ErrorIs(t, err, common.ErrLockNotObtained)

			release()
			release, err = queue.LockDrain(ctx)
			require.NoError(t, err)
			release()
		})
	}
}

func TestRedisJobQueue_LockDrainRefreshes(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb, err := common.NewRedisClient(types.RedisConfig{
		Addrs: []string{mr.Addr()},
		Mode:  types.RedisModeSingle,
	})
	require.NoError(t, err)

	queue := NewRedisJobQueue(rdb, "refresh", time.Second)
	key := common.Keys.QueueLock("refresh")

	release, err := queue.LockDrain(ctx)
	require.NoError(t, err)

	mr.FastForward(900 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(key) > 500*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	// Past the original TTL the lock is still held
	mr.FastForward(900 * time.Millisecond)
	assert.True(t, mr.Exists(key))
	_, err = queue.LockDrain(ctx)
	assert.ErrorIs(t, err, common.ErrLockNotObtained)

	release()
	assert.False(t, mr.Exists(key))
}

func TestJobQueue_Drain(t *testing.T) {
	ctx := context.Background()
	queue, err := NewRedisJobQueueForTest("drain")
	require.NoError(t, err)

	objects := NewObjectMemoryRepository()
	_, err = objects.CreatePrincipal(ctx, "alice", types.PrincipalKindUser)
	require.NoError(t, err)
	saved := seedNote(t, objects, "alice")

	cat := &recordingCatalog{}
	source := &staticSource{catalogs: []catalog.Catalog{cat}}

	require.NoError(t, queue.Enqueue(ctx, catalog.IntID(saved.IntID)))
	require.NoError(t, queue.Enqueue(ctx, 999))

	report, err := catalog.NewRunner(queue, objects, source, catalog.SelectAll).Drain(ctx, catalog.Unlimited)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, int64(0), report.Remaining)
	assert.Equal(t, []catalog.IntID{catalog.IntID(saved.IntID)}, cat.indexed)
	assert.Equal(t, []catalog.IntID{999}, cat.unindexed)
}
