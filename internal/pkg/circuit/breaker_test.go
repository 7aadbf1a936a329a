package circuit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	assert.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow(), "below threshold stays closed")
	b.RecordFailure()
	assert.False(t, b.Allow(), "threshold reached, breaker open")
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("test", 1, 10*time.Millisecond)
	b.RecordFailure()
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(), "timeout elapsed, probe allowed")

	b.RecordSuccess()
	assert.True(t, b.Allow(), "probe success closes the breaker")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("test", 1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed probe reopens immediately")
}

func TestBreakerOpenHandler(t *testing.T) {
	var fired atomic.Int32
	b := NewBreaker("bridge", 2, time.Minute)
	b.SetOpenHandler(func(name string) {
		assert.Equal(t, "bridge", name)
		fired.Add(1)
	})

	b.RecordFailure()
	b.RecordFailure()
	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.True(t, b.Allow(), "intervening success resets the count")
}
