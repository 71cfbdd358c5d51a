// Package interactive scrapes a browser-driven results view: it clears
// obstacles, walks the listing cards one by one and extracts each detail
// pane into a JobListing.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/scraper"
	"go-jobpost-automation/internal/surface"
)

// ErrNavigation means the results view was never reached. It is the only
// error that ends a session with nothing to show.
var ErrNavigation = errors.New("results view not reachable")

type Config struct {
	NavigationTimeout time.Duration
	ResultsTimeout    time.Duration
	DetailTimeout     time.Duration
	ActionTimeout     time.Duration
	FieldTimeout      time.Duration
	ExpandSettle      time.Duration
	InterListingDelay time.Duration
	MaxPages          int
	MaxListings       int
	Retry             extract.RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		NavigationTimeout: 30 * time.Second,
		ResultsTimeout:    15 * time.Second,
		DetailTimeout:     5 * time.Second,
		ActionTimeout:     3 * time.Second,
		FieldTimeout:      2 * time.Second,
		ExpandSettle:      time.Second,
		InterListingDelay: 2 * time.Second,
		MaxPages:          1,
		Retry:             extract.DefaultRetryPolicy(),
	}
}

// Session owns the page for the duration of Scrape. It is not safe for
// concurrent use.
type Session struct {
	page      surface.Page
	sel       Selectors
	cfg       Config
	obstacles ObstacleClearer
	source    string
	newRunID  func() string
	warmup    func(ctx context.Context, page surface.Page) error
	log       zerolog.Logger
}

type Option func(*Session)

func WithSource(name string) Option {
	return func(s *Session) { s.source = name }
}

func WithRunID(fn func() string) Option {
	return func(s *Session) { s.newRunID = fn }
}

// WithWarmup runs fn on every results page before listings are enumerated,
// e.g. to scroll a lazily rendered list into the DOM.
func WithWarmup(fn func(ctx context.Context, page surface.Page) error) Option {
	return func(s *Session) { s.warmup = fn }
}

func NewSession(page surface.Page, sel Selectors, obstacles ObstacleClearer, cfg Config, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		page:      page,
		sel:       sel,
		cfg:       cfg,
		obstacles: obstacles,
		source:    "google_jobs",
		newRunID:  uuid.NewString,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxPages < 1 {
		s.cfg.MaxPages = 1
	}
	return s
}

func (s *Session) Name() string {
	return s.source
}

// Scrape navigates to the results for q and emits every listing it can
// extract. Per-listing failures are skipped; only ErrNavigation (or
// cancellation before the results load) is returned as an error. The
// report is never nil.
func (s *Session) Scrape(ctx context.Context, q scraper.Query, emit scraper.Emitter) (*scraper.Report, error) {
	report := scraper.NewReport(s.newRunID(), s.source, q)
	log := s.log.With().Str("run_id", report.RunID).Str("source", s.source).Logger()

	searchURL, err := s.sel.BuildSearchURL(q)
	if err != nil {
		return report.Finish(scraper.NavigationFailed), fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	log.Info().Str("term", q.SearchTerm).Str("location", q.Location).Msg("🔍 Opening results")
	if err := s.openResults(ctx, searchURL); err != nil {
		if ctx.Err() != nil {
			return report.Finish(scraper.Cancelled), ctx.Err()
		}
		log.Error().Err(err).Msg("❌ Results view never became ready")
		return report.Finish(scraper.NavigationFailed), err
	}

	p := &pipeline{
		page:      s.page,
		sel:       s.sel,
		enum:      NewEnumerator(s.sel.Listing),
		ex:        extract.New(s.cfg.Retry, s.cfg.FieldTimeout, log),
		obstacles: s.obstacles,
		cfg:       s.cfg,
		source:    s.source,
		query:     q,
		log:       log,
	}

	term := scraper.Exhausted
	for pageNo := 0; pageNo < s.cfg.MaxPages; pageNo++ {
		if pageNo > 0 {
			more, err := s.nextPage(ctx)
			if err != nil {
				log.Warn().Err(err).Int("page", pageNo).Msg("⚠️ Could not load next page")
				term = s.stopReason(ctx, scraper.ResultsLost)
				break
			}
			if !more {
				break
			}
		}
		if t, stop := s.scrapePage(ctx, p, pageNo, report, emit, log); stop {
			term = t
			break
		}
	}

	report.Finish(term)
	log.Info().Msg("🏁 " + report.Summary())
	return report, nil
}

func (s *Session) scrapePage(ctx context.Context, p *pipeline, pageNo int, report *scraper.Report, emit scraper.Emitter, log zerolog.Logger) (scraper.Termination, bool) {
	resultsURL := s.page.URL()
	log = log.With().Int("page", pageNo).Logger()
	p.log = log

	if s.warmup != nil {
		if err := s.warmup(ctx, s.page); err != nil {
			if ctx.Err() != nil {
				return scraper.Cancelled, true
			}
			log.Debug().Err(err).Msg("Warmup failed")
		}
	}

	// The count is advisory; the pipeline re-checks bounds on every index.
	handles, err := p.enum.Current(s.page)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Enumeration failed")
		return scraper.ResultsLost, true
	}
	total := len(handles)
	if s.cfg.MaxListings > 0 && total > s.cfg.MaxListings {
		total = s.cfg.MaxListings
	}
	log.Info().Int("listings", len(handles)).Int("visiting", total).Msg("📦 Listings found")

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return scraper.Cancelled, true
		}

		out, err := p.run(ctx, i)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("⚠️ Session interrupted")
			return s.stopReason(ctx, scraper.Aborted), true
		}

		switch out.next {
		case toDone:
			log.Info().Int("index", i).Str("reason", out.reason).Msg("🔚 Listing set changed, stopping early")
			return scraper.Shrank, true
		case toSkip:
			log.Warn().Int("index", i).Str("reason", out.reason).Msg("⏭️ Skipping listing")
			report.Skip(pageNo, i, out.reason)
		case toEmit:
			log.Info().Int("index", i).Str("title", out.listing.Title).Str("company", out.listing.Company).Msg("✅ Extracted listing")
			report.Emit(ctx, emit, out.listing)
		}

		if out.navigated {
			if err := s.returnToResults(ctx, resultsURL); err != nil {
				log.Warn().Err(err).Msg("⚠️ Could not return to results")
				return s.stopReason(ctx, scraper.ResultsLost), true
			}
		}

		// Settle
		if err := sleep(ctx, s.cfg.InterListingDelay); err != nil {
			return scraper.Cancelled, true
		}
	}
	return "", false
}

func (s *Session) stopReason(ctx context.Context, t scraper.Termination) scraper.Termination {
	if ctx.Err() != nil {
		return scraper.Cancelled
	}
	return t
}

// openResults navigates to url, clears obstacles and waits for the results
// container. Any failure other than cancellation is ErrNavigation.
func (s *Session) openResults(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Goto(url, s.cfg.NavigationTimeout); err != nil {
		return fmt.Errorf("%w: goto %s: %v", ErrNavigation, url, err)
	}
	return s.awaitResults(ctx)
}

func (s *Session) awaitResults(ctx context.Context) error {
	if err := s.obstacles.Clear(ctx, s.page); err != nil {
		return fmt.Errorf("%w: clear obstacles: %v", ErrNavigation, err)
	}
	if err := s.page.Locator(s.sel.ResultsReady).First().WaitVisible(s.cfg.ResultsTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	return nil
}

func (s *Session) returnToResults(ctx context.Context, url string) error {
	return s.openResults(ctx, url)
}

// nextPage follows the pagination control. It reports false when there is
// no further page.
func (s *Session) nextPage(ctx context.Context) (bool, error) {
	if s.sel.NextPage == "" {
		return false, nil
	}
	next := s.page.Locator(s.sel.NextPage).First()
	if visible, _ := next.IsVisible(); !visible {
		return false, nil
	}
	if err := sleep(ctx, s.cfg.InterListingDelay); err != nil {
		return false, err
	}

	if href, err := next.Attribute("href", s.cfg.ActionTimeout); err == nil {
		if target := absoluteURL(s.page.URL(), href); target != "" {
			return true, s.openResults(ctx, target)
		}
	}
	if err := next.Click(s.cfg.ActionTimeout); err != nil {
		if derr := next.DispatchClick(); derr != nil {
			return false, errors.Join(err, derr)
		}
	}
	if err := s.awaitResults(ctx); err != nil {
		return false, err
	}
	return true, nil
}
