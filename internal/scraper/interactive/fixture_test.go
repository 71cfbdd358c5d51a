package interactive

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/surface"
	"go-jobpost-automation/internal/surface/surfacetest"
)

type card struct {
	id          string
	title       string
	company     string
	location    string
	href        string
	intercepted bool
	noOpen      bool
}

func (c card) html() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="card" data-id="%s"`, c.id)
	if c.intercepted {
		b.WriteString(` data-intercepted`)
	}
	b.WriteString(`>`)
	if c.href != "" {
		fmt.Fprintf(&b, `<a href="%s"><span class="title">%s</span></a>`, c.href, c.title)
	} else {
		fmt.Fprintf(&b, `<span class="title">%s</span>`, c.title)
	}
	if c.company != "" {
		fmt.Fprintf(&b, `<div class="company">%s</div>`, c.company)
	}
	if c.location != "" {
		fmt.Fprintf(&b, `<div class="location">%s</div>`, c.location)
	}
	if !c.noOpen {
		b.WriteString(`<button class="open">Open</button>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func resultsHTML(next string, cards ...card) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Jobs - Search</title></head><body><div id="results">`)
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString(`</div>`)
	if next != "" {
		fmt.Fprintf(&b, `<a id="next" href="%s">Next</a>`, next)
	}
	b.WriteString(`<div id="pane" hidden></div></body></html>`)
	return b.String()
}

func pane(title string, segments ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<h1>%s</h1>`, title)
	classes := []string{"desc-a", "desc-b"}
	for i, s := range segments {
		if s == "" {
			continue
		}
		fmt.Fprintf(&b, `<div class="%s">%s</div>`, classes[i], s)
	}
	return b.String()
}

// withPanes shows panes[id] in the detail pane when card id is clicked,
// and hides the pane for ids without an entry.
func withPanes(page *surfacetest.Page, panes map[string]string) {
	page.OnClick(".card", func(p *surfacetest.Page, target *goquery.Selection) {
		id, _ := target.Attr("data-id")
		body, ok := panes[id]
		if !ok {
			p.Hide("#pane")
			return
		}
		p.SetHTML("#pane", body)
		p.Show("#pane")
	})
}

func testSelectors() Selectors {
	return Selectors{
		SearchURL:     "https://jobs.example/search",
		QueryParam:    "q",
		LocationParam: "l",
		ResultsReady:  "#results",
		Listing:       "#results .card",
		ListingLink:   extract.Selectors("a[href]"),
		Title: extract.Chain{
			{Name: "card-title", Selector: ".title"},
			{Name: "pane-heading", Selector: "h1", Recovers: "direct-navigation"},
		},
		Company:     extract.Selectors(".company"),
		Location:    extract.Selectors(".location"),
		DetailPane:  "#pane",
		PaneTitle:   extract.Selectors("h1"),
		ShowMore:    ".more",
		Description: []extract.Chain{extract.Selectors(".desc-a"), extract.Selectors(".desc-b")},
		NextPage:    "#next",
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ExpandSettle = 0
	cfg.InterListingDelay = 0
	cfg.Retry = extract.RetryPolicy{MaxAttempts: 2}
	return cfg
}

type clearerFunc func(ctx context.Context, page surface.Page) error

func (f clearerFunc) Clear(ctx context.Context, page surface.Page) error { return f(ctx, page) }

var noObstacles = clearerFunc(func(ctx context.Context, _ surface.Page) error { return ctx.Err() })

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("run-%d", n.Add(1)) }
}
