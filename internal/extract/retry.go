package extract

import (
	"context"
	"time"
)

// RetryPolicy bounds how many times a lookup is attempted and how long to
// pause between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: 500 * time.Millisecond}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it reports ok, the attempts are spent or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func() (string, bool)) (string, bool) {
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if v, ok := fn(); ok {
			return v, true
		}
		if attempt == p.attempts() || p.Delay <= 0 {
			continue
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return "", false
		}
	}
	return "", false
}
