// Package surfacetest is an in-memory surface.Page backed by a goquery
// document. Locators are lazy, so DOM changes made by click handlers are
// observed by later calls exactly like a live browser page.
package surfacetest

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-jobpost-automation/internal/surface"
)

// ClickFunc reacts to a click on an element matched by a registered selector.
type ClickFunc func(p *Page, target *goquery.Selection)

type clickHandler struct {
	selector string
	fn       ClickFunc
}

// Page implements surface.Page.
type Page struct {
	doc      *goquery.Document
	url      string
	handlers []clickHandler

	// GotoErr fails every navigation when set.
	GotoErr error
	// OnGoto runs after a navigation is recorded, e.g. to load another document.
	OnGoto func(p *Page, url string) error

	Visits     []string
	Clicks     []string
	Dispatched []string
	Shots      []string
	Scrolled   float64
}

var _ surface.Page = (*Page)(nil)

func NewPage(html string) *Page {
	p := &Page{}
	p.Load(html)
	return p
}

// Load replaces the current document.
func (p *Page) Load(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("surfacetest: parse html: %v", err))
	}
	p.doc = doc
}

// OnClick registers fn for clicks landing on (or inside) selector.
func (p *Page) OnClick(selector string, fn ClickFunc) {
	p.handlers = append(p.handlers, clickHandler{selector: selector, fn: fn})
}

func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

func (p *Page) SetHTML(selector, html string) {
	p.doc.Find(selector).SetHtml(html)
}

func (p *Page) Hide(selector string) {
	p.doc.Find(selector).SetAttr("hidden", "")
}

func (p *Page) Show(selector string) {
	p.doc.Find(selector).RemoveAttr("hidden")
}

func (p *Page) Remove(selector string) {
	p.doc.Find(selector).Remove()
}

func (p *Page) Locator(selector string) surface.Locator {
	return locator{page: p, steps: []step{{selector: selector, nth: -1}}}
}

func (p *Page) Goto(url string, _ time.Duration) error {
	p.Visits = append(p.Visits, url)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.url = url
	if p.OnGoto != nil {
		return p.OnGoto(p, url)
	}
	return nil
}

func (p *Page) Title() (string, error) {
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

func (p *Page) URL() string {
	return p.url
}

func (p *Page) Scroll(dy float64) error {
	p.Scrolled += dy
	return nil
}

func (p *Page) Screenshot(path string) error {
	p.Shots = append(p.Shots, path)
	return nil
}

func (p *Page) fire(target *goquery.Selection) {
	for _, h := range p.handlers {
		matched := target.Closest(h.selector)
		if matched.Length() == 0 {
			continue
		}
		h.fn(p, matched)
	}
}

type step struct {
	selector string
	nth      int
}

type locator struct {
	page  *Page
	steps []step
}

func (l locator) with(s step) locator {
	steps := make([]step, len(l.steps), len(l.steps)+1)
	copy(steps, l.steps)
	return locator{page: l.page, steps: append(steps, s)}
}

func (l locator) resolve() *goquery.Selection {
	sel := l.page.doc.Selection
	for _, s := range l.steps {
		if s.selector != "" {
			sel = sel.Find(s.selector)
		}
		if s.nth >= 0 {
			sel = sel.Eq(s.nth)
		}
	}
	return sel
}

func (l locator) String() string {
	parts := make([]string, 0, len(l.steps))
	for _, s := range l.steps {
		switch {
		case s.selector == "":
			parts = append(parts, fmt.Sprintf("nth=%d", s.nth))
		case s.nth >= 0:
			parts = append(parts, fmt.Sprintf("%s >> nth=%d", s.selector, s.nth))
		default:
			parts = append(parts, s.selector)
		}
	}
	return strings.Join(parts, " >> ")
}

func (l locator) Locator(selector string) surface.Locator {
	return l.with(step{selector: selector, nth: -1})
}

func (l locator) First() surface.Locator {
	return l.Nth(0)
}

func (l locator) Nth(index int) surface.Locator {
	return l.with(step{nth: index})
}

func (l locator) All() ([]surface.Locator, error) {
	n := l.resolve().Length()
	out := make([]surface.Locator, n)
	for i := range n {
		out[i] = l.Nth(i)
	}
	return out, nil
}

func (l locator) Count() (int, error) {
	return l.resolve().Length(), nil
}

func (l locator) single() (*goquery.Selection, error) {
	sel := l.resolve()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("timeout waiting for locator(%s)", l)
	}
	return sel.First(), nil
}

func (l locator) InnerText(_ time.Duration) (string, error) {
	sel, err := l.single()
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

func (l locator) InnerHTML(_ time.Duration) (string, error) {
	sel, err := l.single()
	if err != nil {
		return "", err
	}
	return sel.Html()
}

func (l locator) Attribute(name string, _ time.Duration) (string, error) {
	sel, err := l.single()
	if err != nil {
		return "", err
	}
	val, _ := sel.Attr(name)
	return val, nil
}

func (l locator) IsVisible() (bool, error) {
	return visible(l.resolve()), nil
}

func (l locator) Click(_ time.Duration) error {
	sel, err := l.single()
	if err != nil {
		return err
	}
	if !visible(sel) {
		return fmt.Errorf("locator(%s): element is not visible", l)
	}
	if sel.Closest("[data-intercepted]").Length() > 0 {
		return fmt.Errorf("locator(%s): element click intercepted", l)
	}
	l.page.Clicks = append(l.page.Clicks, l.String())
	l.page.fire(sel)
	return nil
}

func (l locator) DispatchClick() error {
	sel, err := l.single()
	if err != nil {
		return err
	}
	l.page.Dispatched = append(l.page.Dispatched, l.String())
	l.page.fire(sel)
	return nil
}

func (l locator) WaitVisible(_ time.Duration) error {
	if !visible(l.resolve()) {
		return fmt.Errorf("timeout waiting for locator(%s) to be visible", l)
	}
	return nil
}

func (l locator) WaitHidden(_ time.Duration) error {
	if visible(l.resolve()) {
		return fmt.Errorf("timeout waiting for locator(%s) to be hidden", l)
	}
	return nil
}

func visible(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return false
	}
	for n := sel.First(); n.Length() > 0; n = n.Parent() {
		if _, ok := n.Attr("hidden"); ok {
			return false
		}
		if n.HasClass("hidden") {
			return false
		}
		if style, ok := n.Attr("style"); ok && strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return false
		}
	}
	return true
}
