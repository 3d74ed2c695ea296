package schedule

import (
	"sync"
	"time"
)

// Alarm delivers a signal on C after a configurable delay unless reset or stopped.
// It is safe for concurrent use.
type Alarm struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	c     chan struct{}
}

// NewAlarm returns a stopped Alarm.
func NewAlarm() *Alarm {
	return &Alarm{c: make(chan struct{}, 1)}
}

// C returns the channel the alarm signals on. Signals coalesce.
func (a *Alarm) C() <-chan struct{} { return a.c }

// Reset cancels any pending signal and schedules a new one after d.
//
// Postcondition: exactly one signal is delivered after d unless Reset or Stop is called first.
func (a *Alarm) Reset(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(d, func() {
		a.mu.Lock()
		current := a.gen == gen
		a.mu.Unlock()
		if current {
			a.Fire()
		}
	})
}

// Fire signals immediately without waiting.
func (a *Alarm) Fire() {
	select {
	case a.c <- struct{}{}:
	default:
	}
}

// Stop prevents any pending signal. Safe to call multiple times.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
	}
}
