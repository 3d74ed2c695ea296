package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTask(t *testing.T) {
	a := schedule.NewTask(schedule.KindEncounterTick, 7, epoch)
	b := schedule.NewTask(schedule.KindEncounterTick, 7, epoch)
	assert.Equal(t, "encounter_tick:7", a.Key)
	assert.Equal(t, a.Key, b.Key)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestQueue_PopDueOrder(t *testing.T) {
	q := schedule.NewQueue()
	q.Push(schedule.NewTask(schedule.KindCast, 3, epoch.Add(3*time.Second)))
	q.Push(schedule.NewTask(schedule.KindCast, 1, epoch.Add(1*time.Second)))
	q.Push(schedule.NewTask(schedule.KindCast, 2, epoch.Add(2*time.Second)))

	due := q.PopDue(epoch.Add(2 * time.Second))
	require.Len(t, due, 2)
	assert.Equal(t, int64(1), due[0].RefID)
	assert.Equal(t, int64(2), due[1].RefID)
	assert.Equal(t, 1, q.Len())

	next, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(3), next.RefID)
}

func TestQueue_Property_PopDueSorted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		q := schedule.NewQueue()
		offsets := rapid.SliceOf(rapid.IntRange(0, 1000)).Draw(rt, "offsets")
		for i, off := range offsets {
			q.Push(schedule.NewTask(schedule.KindRegen, int64(i), epoch.Add(time.Duration(off)*time.Millisecond)))
		}
		cut := epoch.Add(time.Duration(rapid.IntRange(0, 1000).Draw(rt, "cut")) * time.Millisecond)
		due := q.PopDue(cut)
		for i, task := range due {
			assert.False(rt, task.DueAt.After(cut))
			if i > 0 {
				assert.False(rt, task.DueAt.Before(due[i-1].DueAt))
			}
		}
		if next, ok := q.Peek(); ok {
			assert.True(rt, next.DueAt.After(cut))
		}
	})
}

func TestManualClock(t *testing.T) {
	c := schedule.NewManualClock(epoch)
	c.Advance(time.Second)
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	c.Set(epoch)
	assert.Equal(t, epoch, c.Now())
}

func TestDispatcher_RunDue(t *testing.T) {
	clock := schedule.NewManualClock(epoch)
	d := schedule.NewDispatcher(clock, zap.NewNop())

	var ran []int64
	d.Handle(schedule.KindCast, func(_ context.Context, task schedule.Task) error {
		ran = append(ran, task.RefID)
		return nil
	})
	d.Handle(schedule.KindRegen, func(context.Context, schedule.Task) error {
		return errors.New("boom")
	})

	d.Schedule(schedule.NewTask(schedule.KindCast, 1, epoch))
	d.Schedule(schedule.NewTask(schedule.KindRegen, 0, epoch))
	d.Schedule(schedule.NewTask(schedule.KindCast, 2, epoch.Add(time.Second)))

	assert.Equal(t, 2, d.RunDue(context.Background()), "failing handler still counts as run")
	assert.Equal(t, []int64{1}, ran)

	clock.Advance(time.Second)
	assert.Equal(t, 1, d.RunDue(context.Background()))
	assert.Equal(t, []int64{1, 2}, ran)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_Run(t *testing.T) {
	d := schedule.NewDispatcher(schedule.SystemClock{}, zap.NewNop())
	var fired atomic.Int32
	done := make(chan struct{})
	d.Handle(schedule.KindCast, func(context.Context, schedule.Task) error {
		if fired.Add(1) == 1 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	d.Schedule(schedule.NewTask(schedule.KindCast, 1, time.Now().Add(20*time.Millisecond)))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestAlarm_StopPreventsSignal(t *testing.T) {
	a := schedule.NewAlarm()
	a.Reset(20 * time.Millisecond)
	a.Stop()
	a.Stop()
	select {
	case <-a.C():
		t.Fatal("stopped alarm signalled")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestAlarm_ResetSupersedes(t *testing.T) {
	a := schedule.NewAlarm()
	a.Reset(10 * time.Millisecond)
	a.Reset(time.Hour)
	select {
	case <-a.C():
		t.Fatal("superseded alarm signalled")
	case <-time.After(50 * time.Millisecond):
	}
	a.Fire()
	select {
	case <-a.C():
	default:
		t.Fatal("Fire did not signal")
	}
	a.Stop()
}
