package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomBackoffStaysWithinRange(t *testing.T) {
	s := NewRandomBackoff(10*time.Millisecond, 50*time.Millisecond)

	for attempt := 0; attempt < 1000; attempt++ {
		wait, ok := s.NextWait(attempt)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, int64(wait), int64(10*time.Millisecond))
		assert.LessOrEqual(t, int64(wait), int64(50*time.Millisecond))
	}
}

func TestRandomBackoffWithEqualBounds(t *testing.T) {
	s := NewRandomBackoff(time.Second, time.Second)

	wait, ok := s.NextWait(0)
	assert.True(t, ok)
	assert.Equal(t, time.Second, wait)
}

func TestExponentialBackoffDoubling(t *testing.T) {
	s := NewExponentialBackoff(time.Millisecond, time.Second, 0)

	wait, ok := s.NextWait(0)
	assert.True(t, ok)
	assert.Equal(t, time.Millisecond, wait)

	wait, ok = s.NextWait(3)
	assert.True(t, ok)
	assert.Equal(t, 8*time.Millisecond, wait)
}

func TestExponentialBackoffIsNonDecreasingAndCapped(t *testing.T) {
	s := NewExponentialBackoff(time.Millisecond, 100*time.Millisecond, 0)

	previous := time.Duration(0)
	for attempt := 0; attempt < 100; attempt++ {
		wait, ok := s.NextWait(attempt)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, int64(wait), int64(previous))
		assert.LessOrEqual(t, int64(wait), int64(100*time.Millisecond))
		previous = wait
	}
}

func TestExponentialBackoffCapIsNotAPowerOfTwoMultiple(t *testing.T) {
	s := NewExponentialBackoff(3*time.Millisecond, 10*time.Millisecond, 0)

	wait, ok := s.NextWait(2)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, wait)
}

func TestExponentialBackoffExhaustion(t *testing.T) {
	s := NewExponentialBackoff(time.Millisecond, time.Second, 3)

	_, ok := s.NextWait(2)
	assert.True(t, ok)

	_, ok = s.NextWait(3)
	assert.False(t, ok)

	_, ok = s.NextWait(100)
	assert.False(t, ok)
}

func TestExponentialBackoffLargeAttemptDoesNotOverflow(t *testing.T) {
	s := NewExponentialBackoff(time.Second, time.Minute, 0)

	wait, ok := s.NextWait(100000)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, wait)
}

func TestStrategiesAreSafeForConcurrentLoops(t *testing.T) {
	random := NewRandomBackoff(time.Millisecond, 2*time.Millisecond)
	exponential := NewExponentialBackoff(time.Millisecond, time.Second, 0)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for attempt := 0; attempt < 500; attempt++ {
				random.NextWait(attempt)
				exponential.NextWait(attempt)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
