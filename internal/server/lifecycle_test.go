package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockService struct {
	started atomic.Bool
	stopped atomic.Bool
	err     error
}

func (m *mockService) Run(ctx context.Context) error {
	m.started.Store(true)
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	m.stopped.Store(true)
	return ctx.Err()
}

func waitStarted(t *testing.T, svcs ...*mockService) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, s := range svcs {
			if !s.started.Load() {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "services did not start in time")
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	svc1 := &mockService{}
	svc2 := &mockService{}
	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	waitStarted(t, svc1, svc2)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
}

func TestLifecycleFailureStopsTheRest(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	boom := errors.New("boom")
	healthy := &mockService{}
	lc.Add("healthy", healthy)
	lc.Add("broken", &mockService{err: boom})

	err := lc.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service broken")
	assert.True(t, healthy.stopped.Load())
}

func TestFuncServiceStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	var stopped atomic.Bool
	svc := &FuncService{
		StartFn: func() error {
			<-release
			return nil
		},
		StopFn: func() {
			stopped.Store(true)
			close(release)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Run(ctx))
	assert.True(t, stopped.Load())
}

func TestFuncServiceReturnsStartError(t *testing.T) {
	boom := errors.New("listen failed")
	svc := &FuncService{
		StartFn: func() error { return boom },
		StopFn:  func() { t.Error("stop must not run") },
	}
	assert.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestServiceFunc(t *testing.T) {
	called := false
	var svc Service = ServiceFunc(func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, svc.Run(context.Background()))
	assert.True(t, called)
}
