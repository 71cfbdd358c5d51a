package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/surface"
)

// Extractor reads field values from a scope through a strategy chain.
// A field that cannot be located is reported as absent, never as an error.
type Extractor struct {
	policy  RetryPolicy
	timeout time.Duration
	log     zerolog.Logger
}

func New(policy RetryPolicy, timeout time.Duration, log zerolog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Extractor{policy: policy, timeout: timeout, log: log}
}

// Text returns the first non-empty inner text produced by the chain.
func (e *Extractor) Text(ctx context.Context, scope surface.Scope, chain Chain) (string, bool) {
	return e.run(ctx, scope, chain, func(loc surface.Locator) (string, error) {
		text, err := loc.InnerText(e.timeout)
		return CleanBlock(text), err
	})
}

// Attr returns the first non-empty value of attribute name.
func (e *Extractor) Attr(ctx context.Context, scope surface.Scope, chain Chain, name string) (string, bool) {
	return e.run(ctx, scope, chain, func(loc surface.Locator) (string, error) {
		return loc.Attribute(name, e.timeout)
	})
}

// Markup reads inner HTML and converts it to plain text. Used when the
// rendered text comes back empty, e.g. for collapsed or styled-away nodes.
func (e *Extractor) Markup(ctx context.Context, scope surface.Scope, chain Chain) (string, bool) {
	return e.run(ctx, scope, chain, func(loc surface.Locator) (string, error) {
		markup, err := loc.InnerHTML(e.timeout)
		if err != nil {
			return "", err
		}
		return TextFromMarkup(markup), nil
	})
}

var errNoMatch = errors.New("no element matches")

func (e *Extractor) run(ctx context.Context, scope surface.Scope, chain Chain, fn func(surface.Locator) (string, error)) (string, bool) {
	if len(chain) == 0 {
		return "", false
	}
	return e.policy.Do(ctx, func() (string, bool) {
		for i, s := range chain {
			value, err := e.read(scope, s, i > 0, fn)
			if err != nil {
				e.log.Debug().Str("strategy", s.Name).Str("selector", s.Selector).Err(err).Msg("strategy missed")
				continue
			}
			if value != "" {
				return value, true
			}
		}
		return "", false
	})
}

// read applies fn to the strategy's first match. Only the head of a chain
// waits for its element; fallbacks are read only when already present.
func (e *Extractor) read(scope surface.Scope, s Strategy, fallback bool, fn func(surface.Locator) (string, error)) (string, error) {
	loc := scope.Locator(s.Selector)
	if fallback {
		n, err := loc.Count()
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", errNoMatch
		}
	}
	return fn(loc.First())
}
