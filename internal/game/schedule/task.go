// Package schedule provides time-stamped one-shot tasks, a min-heap queue, and
// a single dispatcher loop that hands due tasks to per-kind handlers.
//
// The package has no combat knowledge. Handlers are expected to re-read fresh
// state and treat a task whose subject is gone as a no-op.
package schedule

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the handler a task is routed to.
type Kind string

const (
	KindEncounterTick Kind = "encounter_tick"
	KindPullResolve   Kind = "pull_resolve"
	KindCast          Kind = "cast"
	KindRespawn       Kind = "spawn_respawn"
	KindCleanup       Kind = "encounter_cleanup"
	KindLootExpire    Kind = "loot_expire"
	KindRegen         Kind = "regen"
)

// Task is one pending unit of timed work.
type Task struct {
	// ID changes every time the task for Key is rescheduled.
	ID string
	// Key identifies the subject; at most one live task exists per key.
	Key   string
	Kind  Kind
	RefID int64
	DueAt time.Time
}

// KeyFor returns the task key for (kind, refID).
func KeyFor(kind Kind, refID int64) string {
	return fmt.Sprintf("%s:%d", kind, refID)
}

// NewTask builds a task with a fresh ID.
//
// Postcondition: t.Key == KeyFor(kind, refID) and t.ID is a new UUID.
func NewTask(kind Kind, refID int64, due time.Time) Task {
	return Task{
		ID:    uuid.NewString(),
		Key:   KeyFor(kind, refID),
		Kind:  kind,
		RefID: refID,
		DueAt: due,
	}
}

type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].DueAt.Equal(h[j].DueAt) {
		return h[i].Key < h[j].Key
	}
	return h[i].DueAt.Before(h[j].DueAt)
}
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Queue is a concurrency-safe min-heap of tasks ordered by due time.
// Superseded tasks are not removed eagerly; consumers compare IDs against the
// persisted task row and skip stale entries.
type Queue struct {
	mu sync.Mutex
	h  taskHeap
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push adds t.
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.h, t)
}

// Peek returns the earliest task without removing it.
func (q *Queue) Peek() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return Task{}, false
	}
	return q.h[0], true
}

// PopDue removes and returns every task due at or before now, earliest first.
//
// Postcondition: every returned task has DueAt <= now.
func (q *Queue) PopDue(now time.Time) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []Task
	for len(q.h) > 0 && !q.h[0].DueAt.After(now) {
		due = append(due, heap.Pop(&q.h).(Task))
	}
	return due
}

// Len returns the number of queued tasks, stale entries included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
