package reconnect

import (
	"time"

	"github.com/dogmatiq/linger/backoff"
)

const (
	// MaxExponent is the largest power of two used to compute a delay.
	MaxExponent = 5

	// MaxDelay is the longest delay between two connection attempts.
	MaxDelay = 30 * time.Second
)

// Delay returns the duration to wait after the n'th consecutive failed attempt
// to establish the work-item stream.
//
// The delay is 2^n seconds, with n capped at MaxExponent and the result capped
// at MaxDelay. n must be positive; it is treated as 1 if it is not.
func Delay(n uint) time.Duration {
	if n == 0 {
		n = 1
	}

	if n > MaxExponent {
		n = MaxExponent
	}

	d := time.Duration(1<<n) * time.Second

	if d > MaxDelay {
		return MaxDelay
	}

	return d
}

// Strategy is a backoff.Strategy that computes delays using Delay().
var Strategy backoff.Strategy = func(_ error, n uint) time.Duration {
	return Delay(n)
}
