package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelRunsEveryInput(t *testing.T) {
	var sum atomic.Int64
	errBad := errors.New("bad input")

	errs := Parallel(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		if n == 2 {
			return errBad
		}
		return nil
	})

	require.Len(t, errs, 5)
	assert.Equal(t, int64(15), sum.Load(), "a failure does not stop other inputs")
	assert.ErrorIs(t, errs[1], errBad)
	for i, err := range errs {
		if i != 1 {
			assert.NoError(t, err)
		}
	}
}

func TestParallelRespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	block := make(chan struct{})
	done := make(chan []error)

	go func() {
		done <- Parallel(context.Background(), make([]int, 6), 3, func(context.Context, int) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-block
			running.Add(-1)
			return nil
		})
	}()

	close(block)
	<-done
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	errs := Parallel(ctx, []string{"a", "b"}, 1, func(context.Context, string) error {
		calls.Add(1)
		return nil
	})

	assert.Zero(t, calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestParallelEmpty(t *testing.T) {
	assert.Empty(t, Parallel(context.Background(), nil, 4, func(context.Context, int) error { return nil }))
}
