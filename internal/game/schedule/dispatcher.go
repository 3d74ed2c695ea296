package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one due task.
type Handler func(ctx context.Context, t Task) error

// idleWait bounds how long Run sleeps when the queue is empty.
const idleWait = time.Minute

// Dispatcher pops due tasks from a Queue and runs the handler registered for
// their kind, one task at a time.
type Dispatcher struct {
	queue  *Queue
	clock  Clock
	logger *zap.Logger
	alarm  *Alarm

	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewDispatcher creates a Dispatcher over an empty queue.
//
// Precondition: clock and logger must be non-nil.
func NewDispatcher(clock Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    NewQueue(),
		clock:    clock,
		logger:   logger,
		alarm:    NewAlarm(),
		handlers: make(map[Kind]Handler),
	}
}

// Handle registers h for kind, replacing any earlier handler.
func (d *Dispatcher) Handle(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Schedule enqueues t and wakes the loop so it can re-arm for an earlier deadline.
func (d *Dispatcher) Schedule(t Task) {
	d.queue.Push(t)
	d.alarm.Fire()
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int { return d.queue.Len() }

// RunDue runs every task due at the clock's current time and returns how many ran.
// Handler errors are logged and do not stop the remaining tasks.
func (d *Dispatcher) RunDue(ctx context.Context) int {
	due := d.queue.PopDue(d.clock.Now())
	for _, t := range due {
		if err := d.dispatch(ctx, t); err != nil {
			d.logger.Error("scheduled task failed",
				zap.String("kind", string(t.Kind)),
				zap.String("key", t.Key),
				zap.Error(err),
			)
		}
	}
	return len(due)
}

func (d *Dispatcher) dispatch(ctx context.Context, t Task) error {
	d.mu.RLock()
	h, ok := d.handlers[t.Kind]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for task kind %q", t.Kind)
	}
	return h(ctx, t)
}

// Run is the dispatcher loop. It returns when ctx is cancelled.
//
// Postcondition: returns ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.alarm.Stop()
	for {
		d.RunDue(ctx)

		wait := idleWait
		if next, ok := d.queue.Peek(); ok {
			wait = next.DueAt.Sub(d.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}
		d.alarm.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.alarm.C():
		}
	}
}
