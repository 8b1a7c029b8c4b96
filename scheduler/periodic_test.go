package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/programme-lv/judgeworker/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

const interval = 3 * time.Second

func startPeriodic(t *testing.T, clk *clocktesting.FakeClock, task scheduler.Task) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	p := scheduler.NewPeriodic(clk, interval, task)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
	}
}

func TestPeriodicRunsOnEachTick(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	var runs atomic.Int32
	stop := startPeriodic(t, clk, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	defer stop()

	assert.Equal(t, int32(0), runs.Load(), "no run before the first tick")

	clk.Step(interval)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	clk.Step(interval)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
}

func TestPeriodicDropsTicksDuringRun(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	var runs atomic.Int32
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	stop := startPeriodic(t, clk, func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})
	defer stop()

	clk.Step(interval)
	<-started

	// three ticks while the first run is blocked
	clk.Step(interval)
	clk.Step(interval)
	clk.Step(interval)
	release <- struct{}{}

	assert.Never(t, func() bool { return runs.Load() > 1 }, 100*time.Millisecond, 5*time.Millisecond)

	clk.Step(interval)
	<-started
	release <- struct{}{}
	assert.Equal(t, int32(2), runs.Load())
}

func TestPeriodicSurvivesPanicsAndErrors(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	var runs atomic.Int32
	stop := startPeriodic(t, clk, func(ctx context.Context) error {
		n := runs.Add(1)
		switch n {
		case 1:
			panic("boom")
		case 2:
			return errors.New("engine unreachable")
		}
		return nil
	})
	defer stop()

	for want := int32(1); want <= 3; want++ {
		clk.Step(interval)
		require.Eventually(t, func() bool { return runs.Load() == want }, time.Second, time.Millisecond)
	}
}

func TestPeriodicRejectsNonPositiveInterval(t *testing.T) {
	p := scheduler.NewPeriodic(clocktesting.NewFakeClock(time.Now()), 0, func(ctx context.Context) error {
		return nil
	})
	err := p.Run(context.Background())
	require.Error(t, err)
}
