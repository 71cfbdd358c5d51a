// Package checkpoint parks a session until an operator confirms that a
// verification challenge has been solved.
package checkpoint

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrAborted = errors.New("checkpoint aborted: no operator input")

// Gate blocks until the operator releases it or ctx ends.
type Gate interface {
	Await(ctx context.Context, reason string) error
}

// Notifier tells the operator that a gate is waiting.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type anyGate []Gate

// Any releases as soon as one of gates releases.
func Any(gates ...Gate) Gate {
	if len(gates) == 1 {
		return gates[0]
	}
	return anyGate(gates)
}

func (a anyGate) Await(ctx context.Context, reason string) error {
	if len(a) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(a))
	for _, g := range a {
		go func(g Gate) {
			errs <- g.Await(ctx, reason)
		}(g)
	}

	var first error
	for range a {
		err := <-errs
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return first
}

type notifyingGate struct {
	gate     Gate
	notifier Notifier
	log      zerolog.Logger
}

// WithNotifier sends reason through n before waiting on g. A failed
// notification is logged and the wait goes ahead.
func WithNotifier(g Gate, n Notifier, log zerolog.Logger) Gate {
	if n == nil {
		return g
	}
	return &notifyingGate{gate: g, notifier: n, log: log}
}

func (g *notifyingGate) Await(ctx context.Context, reason string) error {
	if err := g.notifier.Notify(ctx, "⏸ Session paused: "+reason); err != nil {
		g.log.Warn().Err(err).Msg("⚠️ checkpoint notification failed")
	}
	return g.gate.Await(ctx, reason)
}
