package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleTripsAtLimit(t *testing.T) {
	throttle := NewThrottle(3, time.Minute)

	assert.False(t, throttle.Failure("10.0.0.1"))
	assert.False(t, throttle.Failure("10.0.0.1"))
	assert.True(t, throttle.Failure("10.0.0.1"))

	// Other addresses keep their own count.
	assert.False(t, throttle.Failure("10.0.0.2"))
}

func TestThrottleSuccessResets(t *testing.T) {
	throttle := NewThrottle(2, time.Minute)

	assert.False(t, throttle.Failure("10.0.0.1"))
	throttle.Success("10.0.0.1")
	assert.False(t, throttle.Failure("10.0.0.1"))
	assert.True(t, throttle.Failure("10.0.0.1"))
}

func TestThrottleWindowExpires(t *testing.T) {
	throttle := NewThrottle(2, 50*time.Millisecond)

	assert.False(t, throttle.Failure("10.0.0.1"))
	time.Sleep(120 * time.Millisecond)
	assert.False(t, throttle.Failure("10.0.0.1"), "count should restart after the window")
}

func TestThrottleDisabled(t *testing.T) {
	throttle := NewThrottle(0, time.Minute)
	for i := 0; i < 5; i++ {
		assert.False(t, throttle.Failure("10.0.0.1"))
	}
	throttle.Success("10.0.0.1")
}
