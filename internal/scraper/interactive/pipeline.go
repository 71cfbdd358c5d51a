package interactive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/filter"
	"go-jobpost-automation/internal/models"
	"go-jobpost-automation/internal/scraper"
	"go-jobpost-automation/internal/surface"
)

// ObstacleClearer is satisfied by obstacle.Handler.
type ObstacleClearer interface {
	Clear(ctx context.Context, page surface.Page) error
}

const refreshPoll = 100 * time.Millisecond

type transition int

const (
	toDone transition = iota
	toSkip
	toEmit
)

type outcome struct {
	next    transition
	listing models.JobListing
	reason  string
	// navigated is set when activation left the results view.
	navigated bool
}

func done(reason string) outcome { return outcome{next: toDone, reason: reason} }

func skip(reason string) outcome { return outcome{next: toSkip, reason: reason} }

// skip keeps the navigation flag so the session can return to the results.
func (o outcome) skip(reason string) outcome {
	o.next, o.reason = toSkip, reason
	return o
}

// pipeline extracts one listing at a time from the shared page.
type pipeline struct {
	page      surface.Page
	sel       Selectors
	enum      Enumerator
	ex        *extract.Extractor
	obstacles ObstacleClearer
	cfg       Config
	source    string
	query     scraper.Query
	log       zerolog.Logger
}

// run drives listing i through its steps. The returned error is reserved for
// conditions that end the session: cancellation or a failed checkpoint.
func (p *pipeline) run(ctx context.Context, i int) (outcome, error) {
	log := p.log.With().Int("index", i).Logger()

	// Resolve
	card, ok, err := p.enum.At(p.page, i)
	if err != nil {
		return done(fmt.Sprintf("enumerate: %v", err)), nil
	}
	if !ok {
		return done("index out of range"), nil
	}

	// Activate. The pane markup is captured first so a pane that never
	// refreshes is not mistaken for this listing's detail.
	before := p.paneMarkup(p.page.Locator(p.sel.DetailPane).First())
	href := p.resolveHref(ctx, card)
	navigated, err := p.activate(card, href, log)
	if err != nil {
		return skip(fmt.Sprintf("activation failed: %v", err)), nil
	}
	out := outcome{navigated: navigated}

	// AwaitDetail
	pane := p.page.Locator(p.sel.DetailPane).First()
	if err := pane.WaitVisible(p.cfg.DetailTimeout); err != nil {
		log.Debug().Err(err).Msg("detail pane wait failed")
		return out.skip("detail pane not visible"), nil
	}

	// ReclearObstacles
	if err := p.obstacles.Clear(ctx, p.page); err != nil {
		return out, err
	}

	// ExtractCore. The card is resolved again since the click may have
	// rebuilt the list. After a direct navigation the card is gone and the
	// pane is the only scope left.
	var scope surface.Scope = pane
	if !navigated {
		fresh, ok, err := p.enum.At(p.page, i)
		if err != nil || !ok {
			return out.skip("listing gone after activation"), nil
		}
		scope = fresh
	}
	title, ok := p.ex.Text(ctx, scope, p.sel.Title)
	title = extract.CleanLine(title)
	if !ok || title == "" {
		return out.skip("empty title"), nil
	}
	if !navigated && before != "" {
		fresh, err := p.awaitRefresh(ctx, pane, before, title)
		if err != nil {
			return out, err
		}
		if !fresh {
			return out.skip("stale detail pane"), nil
		}
	}
	company, _ := p.ex.Text(ctx, scope, p.sel.Company)
	location, _ := p.ex.Text(ctx, scope, p.sel.Location)

	// ExpandDescription
	if err := p.expand(ctx, pane, log); err != nil {
		return out, err
	}

	// ExtractDescription
	description := p.description(ctx, pane)

	// Assemble
	listing, err := models.Assemble(models.Candidate{
		Title:        title,
		Company:      extract.CleanLine(company),
		Location:     extract.CleanLine(location),
		Description:  description,
		URL:          href,
		Source:       p.source,
		FocusKeyword: filter.FocusKeyword(p.query.SearchTerm, title),
	}, time.Now())
	if err != nil {
		return out.skip(err.Error()), nil
	}
	out.next = toEmit
	out.listing = listing
	return out, nil
}

// resolveHref captures the listing's detail link before any interaction,
// so it can serve both as the record URL and the navigation fallback.
func (p *pipeline) resolveHref(ctx context.Context, card surface.Locator) string {
	raw, ok := p.ex.Attr(ctx, card, p.sel.ListingLink, "href")
	if !ok {
		return ""
	}
	return absoluteURL(p.page.URL(), raw)
}

// absoluteURL resolves raw against base, dropping fragment-only and
// script links.
func absoluteURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

// activate selects the listing: a normal click, then a dispatched click for
// when an overlay swallows the pointer event, then direct navigation.
func (p *pipeline) activate(card surface.Locator, href string, log zerolog.Logger) (bool, error) {
	target := card
	if p.sel.Activate != "" {
		target = card.Locator(p.sel.Activate).First()
	}

	err := target.Click(p.cfg.ActionTimeout)
	if err == nil {
		return false, nil
	}
	log.Debug().Err(err).Msg("click failed, dispatching")

	derr := target.DispatchClick()
	if derr == nil {
		return false, nil
	}
	err = errors.Join(err, derr)

	if href == "" {
		return false, err
	}
	log.Debug().Str("url", href).Msg("navigating to listing directly")
	if gerr := p.page.Goto(href, p.cfg.NavigationTimeout); gerr != nil {
		return false, errors.Join(err, gerr)
	}
	return true, nil
}

// paneMarkup returns the pane's markup, or "" while it is not showing.
func (p *pipeline) paneMarkup(pane surface.Locator) string {
	if visible, _ := pane.IsVisible(); !visible {
		return ""
	}
	markup, err := pane.InnerHTML(p.cfg.FieldTimeout)
	if err != nil {
		return ""
	}
	return markup
}

// awaitRefresh waits up to DetailTimeout for the pane to show the listing
// titled title: either its heading already names it or its markup moves
// away from before.
func (p *pipeline) awaitRefresh(ctx context.Context, pane surface.Locator, before, title string) (bool, error) {
	if heading, ok := p.ex.Text(ctx, pane, p.sel.PaneTitle); ok {
		if strings.Contains(filter.Normalize(heading), filter.Normalize(title)) {
			return true, nil
		}
	}
	deadline := time.Now().Add(p.cfg.DetailTimeout)
	for {
		if now := p.paneMarkup(pane); now != "" && now != before {
			return true, nil
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return false, nil
		}
		if err := sleep(ctx, min(wait, refreshPoll)); err != nil {
			return false, err
		}
	}
}

func (p *pipeline) expand(ctx context.Context, pane surface.Locator, log zerolog.Logger) error {
	if p.sel.ShowMore == "" {
		return nil
	}
	more := pane.Locator(p.sel.ShowMore).First()
	if visible, _ := more.IsVisible(); !visible {
		return nil
	}
	if err := more.Click(p.cfg.ActionTimeout); err != nil {
		if derr := more.DispatchClick(); derr != nil {
			log.Debug().Err(errors.Join(err, derr)).Msg("show more not triggered")
			return nil
		}
	}
	return sleep(ctx, p.cfg.ExpandSettle)
}

// description reads up to two segments from the pane. Each segment falls
// back to its markup when the rendered text is empty.
func (p *pipeline) description(ctx context.Context, pane surface.Locator) string {
	chains := p.sel.Description
	if len(chains) > 2 {
		chains = chains[:2]
	}
	var segments []string
	for _, chain := range chains {
		text, ok := p.ex.Text(ctx, pane, chain)
		if !ok {
			text, ok = p.ex.Markup(ctx, pane, chain)
		}
		if !ok {
			continue
		}
		if len(segments) > 0 && segments[len(segments)-1] == text {
			continue
		}
		segments = append(segments, text)
	}
	joined, ok := extract.JoinSegments(segments...)
	if !ok {
		return models.DescriptionNotFound
	}
	return joined
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
