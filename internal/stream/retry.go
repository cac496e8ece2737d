package stream

import "time"

// DefaultReconnectDelay is the wait between a drop and the next dial.
const DefaultReconnectDelay = 3 * time.Second

// RetryPolicy decides how long to wait before reconnect attempt n
// (1-based, reset after every successful connection) and whether to try
// at all.
type RetryPolicy interface {
	Delay(attempt int) (time.Duration, bool)
}

// FixedDelay retries forever with the same delay: no growth, no jitter.
type FixedDelay time.Duration

// Delay implements RetryPolicy.
func (d FixedDelay) Delay(int) (time.Duration, bool) {
	return time.Duration(d), true
}

// DefaultPolicy is a FixedDelay of DefaultReconnectDelay.
func DefaultPolicy() RetryPolicy {
	return FixedDelay(DefaultReconnectDelay)
}
