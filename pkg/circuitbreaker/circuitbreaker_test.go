package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             50 * time.Millisecond,
		HalfOpenMaxRequests: 2,
	}
}

func trip(cb *CircuitBreaker, failures int) {
	for i := 0; i < failures; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
}

func TestClosedPassesThrough(t *testing.T) {
	cb := New(testConfig())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())

	err = cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(testConfig())

	trip(cb, 3)

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(testConfig())

	trip(cb, 2)
	require.NoError(t, cb.Execute(func() error { return nil }))
	trip(cb, 2)

	// Never reached three consecutive failures.
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestHalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := New(testConfig())
	trip(cb, 3)

	// The open transition is applied on the next call.
	require.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
	time.Sleep(60 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(func() error { return nil }))

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())
	trip(cb, 3)

	require.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	err = cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestReset(t *testing.T) {
	cb := New(testConfig())
	trip(cb, 3)
	_ = cb.Execute(func() error { return nil })
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(func() error { return nil }))
}
