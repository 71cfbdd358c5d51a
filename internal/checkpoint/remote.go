package checkpoint

import (
	"context"
	"sync"
	"time"
)

// Remote is released programmatically, e.g. from an HTTP handler.
type Remote struct {
	mu      sync.Mutex
	reason  string
	since   time.Time
	release chan struct{}
}

func NewRemote() *Remote {
	return &Remote{}
}

func (r *Remote) Await(ctx context.Context, reason string) error {
	ch := make(chan struct{})
	r.mu.Lock()
	r.reason = reason
	r.since = time.Now()
	r.release = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.release == ch {
			r.release = nil
			r.reason = ""
		}
		r.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume releases the pending wait. It reports false when nothing is waiting.
func (r *Remote) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.release == nil {
		return false
	}
	close(r.release)
	r.release = nil
	r.reason = ""
	return true
}

// Pending describes the current wait, if any.
func (r *Remote) Pending() (reason string, since time.Time, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.release == nil {
		return "", time.Time{}, false
	}
	return r.reason, r.since, true
}
