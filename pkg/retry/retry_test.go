package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var sleeps []time.Duration
	r := Retrier{Attempts: 3, Delay: 7 * time.Second, Sleep: func(d time.Duration) { sleeps = append(sleeps, d) }}

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var sleeps []time.Duration
	r := Retrier{Attempts: 3, Delay: 7 * time.Second, Sleep: func(d time.Duration) { sleeps = append(sleeps, d) }}

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{7 * time.Second, 7 * time.Second}, sleeps)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	r := Retrier{Attempts: 3, Delay: time.Second, Sleep: func(d time.Duration) { sleeps = append(sleeps, d) }}

	calls := 0
	failure := errors.New("still down")
	err := r.Do(context.Background(), func() error {
		calls++
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeps, 2)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	r := Retrier{Attempts: 5, Delay: time.Second, Sleep: func(time.Duration) { cancel() }}
	err := r.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoAbandonsWaitOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Retrier{Attempts: 3, Delay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error { return errors.New("transient") })
	}()
	time.AfterFunc(10*time.Millisecond, cancel)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop during the inter-attempt wait")
	}
}

func TestZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := Retrier{}.Do(context.Background(), func() error {
		calls++
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
