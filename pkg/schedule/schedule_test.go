package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC) // a Monday

func TestEveryRunsOnFirstTickThenWaits(t *testing.T) {
	s := schedule.New()
	var n atomic.Int32
	s.Every(time.Minute).Name("count").Run(func(context.Context) error {
		n.Add(1)
		return nil
	})

	ctx := context.Background()
	s.Tick(ctx, base)
	s.Tick(ctx, base.Add(30*time.Second))
	s.Tick(ctx, base.Add(time.Minute))

	assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"count  [every 1m0s]"}, s.List())
}

func TestCronFiresOncePerMinute(t *testing.T) {
	s := schedule.New()
	b, err := s.Cron("0 3 * * 1-5")
	require.NoError(t, err)

	var n atomic.Int32
	b.Name("orders.export").Run(func(context.Context) error {
		n.Add(1)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		s.Tick(ctx, base.Add(time.Duration(i)*time.Second))
	}
	s.Tick(ctx, base.Add(time.Hour))                // 04:00
	s.Tick(ctx, base.Add(5*24*time.Hour))           // Saturday 03:00
	s.Tick(ctx, base.Add(24*time.Hour+time.Second)) // Tuesday 03:00

	assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), n.Load())
}

func TestCronRejectsBadExpressions(t *testing.T) {
	s := schedule.New()
	for _, expr := range []string{"* * *", "*/0 * * * *", "5-1 * * * *", "x * * * *"} {
		_, err := s.Cron(expr)
		assert.Error(t, err, expr)
	}

	_, err := s.Cron("0,30 */6 1 1-12 *")
	assert.NoError(t, err)
}

func TestWithoutOverlappingSkipsBusyTask(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	var n atomic.Int32
	s.Every(time.Second).WithoutOverlapping().Run(func(context.Context) error {
		n.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	s.Tick(ctx, base)
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Tick(ctx, base.Add(2*time.Second))
	close(release)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestStartStopsAfterRunningTasks(t *testing.T) {
	s := schedule.New()
	finished := make(chan struct{})
	s.Every(time.Hour).Run(func(ctx context.Context) error {
		<-ctx.Done()
		close(finished)
		return errors.New("interrupted")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(1100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	select {
	case <-finished:
	default:
		t.Fatal("Start returned before the running task")
	}
}
