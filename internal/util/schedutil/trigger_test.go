package schedutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunEveryFires(t *testing.T) {

	assert := assert.New(t)

	var fired atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := RunEvery(ctx, 10*time.Millisecond, func(time.Time) {
		fired.Add(1)
	})

	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.GreaterOrEqual(fired.Load(), int32(3))
}

func TestRunEverySkipsMissedFires(t *testing.T) {

	assert := assert.New(t)

	var fired atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// every call takes five intervals; missed fire times must not pile up
	_ = RunEvery(ctx, 10*time.Millisecond, func(time.Time) {
		fired.Add(1)
		time.Sleep(50 * time.Millisecond)
	})

	assert.LessOrEqual(fired.Load(), int32(7))
	assert.GreaterOrEqual(fired.Load(), int32(2))
}

func TestRunEveryStopsOnCancel(t *testing.T) {

	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunEvery(ctx, time.Hour, func(time.Time) {})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
