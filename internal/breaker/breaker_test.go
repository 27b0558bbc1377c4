package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New("test", 3, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(failing), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	// While open, calls are rejected without running fn.
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("test", 3, time.Minute, zap.NewNop())

	assert.Error(t, b.Execute(failing))
	assert.Error(t, b.Execute(failing))
	assert.NoError(t, b.Execute(succeeding))
	assert.Error(t, b.Execute(failing))
	assert.Error(t, b.Execute(failing))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond, zap.NewNop())

	assert.Error(t, b.Execute(failing))
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	// The probe succeeds, closing the breaker again.
	assert.NoError(t, b.Execute(succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond, zap.NewNop())

	assert.Error(t, b.Execute(failing))
	time.Sleep(20 * time.Millisecond)

	assert.ErrorIs(t, b.Execute(failing), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerDefaults(t *testing.T) {
	b := New("test", 0, 0, zap.NewNop())
	assert.Equal(t, 5, b.maxFailures)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
