package runner

import (
	"math/rand/v2"
	"time"
)

// backoff implements exponential backoff with jitter between retries.
// A zero initial duration disables waiting.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the wait before the next attempt and grows it for the one after.
func (b *backoff) Next() time.Duration {
	if b.current <= 0 {
		return 0
	}

	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return wait
}
