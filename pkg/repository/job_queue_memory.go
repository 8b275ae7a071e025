package repository

import (
	"context"
	"sync"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/common"
)

// MemoryJobQueue implements JobQueue in memory.
// This is used for local mode where we don't have Redis.
type MemoryJobQueue struct {
	mu      sync.Mutex
	drainMu sync.Mutex
	name    string
	order   []catalog.IntID
	ops     map[catalog.IntID]catalog.JobOp
}

// NewMemoryJobQueue creates a new in-memory indexing queue
func NewMemoryJobQueue(name string) *MemoryJobQueue {
	if name == "" {
		name = defaultQueueName
	}
	return &MemoryJobQueue{
		name: name,
		ops:  make(map[catalog.IntID]catalog.JobOp),
	}
}

func (q *MemoryJobQueue) Name() string {
	return q.name
}

func (q *MemoryJobQueue) Enqueue(ctx context.Context, id catalog.IntID) error {
	return q.EnqueueJob(ctx, catalog.Job{ID: id, Op: catalog.JobOpIndex})
}

func (q *MemoryJobQueue) EnqueueJob(ctx context.Context, job catalog.Job) error {
	if job.Op == "" {
		job.Op = catalog.JobOpIndex
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ops[job.ID]; !ok {
		q.order = append(q.order, job.ID)
	}
	q.ops[job.ID] = job.Op
	return nil
}

func (q *MemoryJobQueue) Pop(ctx context.Context) (*catalog.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil, nil
	}
	id := q.order[0]
	q.order = q.order[1:]
	op := q.ops[id]
	delete(q.ops, id)
	return &catalog.Job{ID: id, Op: op}, nil
}

func (q *MemoryJobQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.order)), nil
}

func (q *MemoryJobQueue) Keys(ctx context.Context) ([]catalog.IntID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]catalog.IntID{}, q.order...), nil
}

func (q *MemoryJobQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.ops = make(map[catalog.IntID]catalog.JobOp)
	return nil
}

func (q *MemoryJobQueue) LockDrain(ctx context.Context) (func(), error) {
	if !q.drainMu.TryLock() {
		return nil, common.ErrLockNotObtained
	}
	return q.drainMu.Unlock, nil
}
