// Package sink forwards validated listings to the publishing collaborators
// and records what happened to each one.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/filter"
	"go-jobpost-automation/internal/ledger"
	"go-jobpost-automation/internal/models"
)

// Publisher delivers one listing. A false result or an error both mean the
// listing was not published.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, listing models.JobListing) (bool, error)
}

// Seen is the dedup store; dedup.JobCache implements it.
type Seen interface {
	IsSeen(key string) bool
	Add(keys ...string) error
}

// Recorder is the outcome ledger; ledger.Ledger implements it.
type Recorder interface {
	Record(ctx context.Context, runID string, listing models.JobListing, status ledger.Status, detail string) error
}

// Transformer rewrites a listing before it is published. It must not fail;
// ai.Optimizer implements it.
type Transformer interface {
	Transform(ctx context.Context, listing models.JobListing) models.JobListing
}

type Adapter struct {
	publisher Publisher
	seen      Seen
	recorder  Recorder
	rules     *filter.Rules
	transform Transformer
	spacing   time.Duration
	runID     string
	log       zerolog.Logger
}

type Option func(*Adapter)

func WithSeen(s Seen) Option { return func(a *Adapter) { a.seen = s } }

func WithRecorder(r Recorder) Option { return func(a *Adapter) { a.recorder = r } }

func WithRules(r *filter.Rules) Option { return func(a *Adapter) { a.rules = r } }

func WithTransformer(t Transformer) Option { return func(a *Adapter) { a.transform = t } }

// WithSpacing waits d after every publish attempt.
func WithSpacing(d time.Duration) Option { return func(a *Adapter) { a.spacing = d } }

func NewAdapter(p Publisher, log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{publisher: p, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForRun tags ledger entries with runID.
func (a *Adapter) ForRun(runID string) *Adapter {
	c := *a
	c.runID = runID
	c.log = a.log.With().Str("run_id", runID).Logger()
	return &c
}

// Emit has the scraper.Emitter signature. It never panics and never
// retries; a publisher failure is reported as false.
func (a *Adapter) Emit(ctx context.Context, listing models.JobListing) bool {
	log := a.log.With().Str("title", listing.Title).Str("company", listing.Company).Logger()

	if ok, reason := a.rules.Check(listing); !ok {
		log.Info().Str("reason", reason).Msg("🚫 Excluded")
		a.record(ctx, listing, ledger.Excluded, reason)
		return false
	}

	key := listing.Key()
	if a.seen != nil && a.seen.IsSeen(key) {
		log.Info().Msg("♻️ Already published")
		a.record(ctx, listing, ledger.Duplicate, "")
		return false
	}

	if a.transform != nil {
		listing = a.transform.Transform(ctx, listing)
	}
	ok, err := a.publish(ctx, listing)
	defer a.settle(ctx)
	if err != nil || !ok {
		detail := "publisher declined"
		if err != nil {
			detail = err.Error()
		}
		log.Warn().Str("reason", detail).Msg("⚠️ Listing not published")
		a.record(ctx, listing, ledger.Failed, detail)
		return false
	}

	if a.seen != nil {
		if err := a.seen.Add(key); err != nil {
			log.Warn().Err(err).Msg("⚠️ Failed to persist seen cache")
		}
	}
	log.Info().Str("publisher", a.publisher.Name()).Msg("📤 Published")
	a.record(ctx, listing, ledger.Published, "")
	return true
}

func (a *Adapter) publish(ctx context.Context, listing models.JobListing) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("publisher %s panicked: %v", a.publisher.Name(), r)
		}
	}()
	return a.publisher.Publish(ctx, listing)
}

func (a *Adapter) record(ctx context.Context, listing models.JobListing, status ledger.Status, detail string) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(ctx, a.runID, listing, status, detail); err != nil {
		a.log.Warn().Err(err).Msg("⚠️ Failed to record outcome")
	}
}

func (a *Adapter) settle(ctx context.Context) {
	if a.spacing <= 0 {
		return
	}
	t := time.NewTimer(a.spacing)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Fanout publishes to every publisher in order and succeeds only if all do.
type Fanout []Publisher

func (f Fanout) Name() string {
	return "fanout"
}

func (f Fanout) Publish(ctx context.Context, listing models.JobListing) (bool, error) {
	all := true
	var errs []error
	for _, p := range f {
		ok, err := p.Publish(ctx, listing)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
		if !ok {
			all = false
		}
	}
	return all && len(errs) == 0, errors.Join(errs...)
}
