package surface

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

type pwPage struct {
	page playwright.Page
}

// FromPlaywright wraps a playwright page.
func FromPlaywright(page playwright.Page) Page {
	return &pwPage{page: page}
}

func (p *pwPage) Locator(selector string) Locator {
	return pwLocator{loc: p.page.Locator(selector)}
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(timeout),
	})
	return err
}

func (p *pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Scroll(dy float64) error {
	return p.page.Mouse().Wheel(0, dy)
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

type pwLocator struct {
	loc playwright.Locator
}

func (l pwLocator) Locator(selector string) Locator {
	return pwLocator{loc: l.loc.Locator(selector)}
}

func (l pwLocator) First() Locator {
	return pwLocator{loc: l.loc.First()}
}

func (l pwLocator) Nth(index int) Locator {
	return pwLocator{loc: l.loc.Nth(index)}
}

func (l pwLocator) All() ([]Locator, error) {
	items, err := l.loc.All()
	if err != nil {
		return nil, err
	}
	out := make([]Locator, len(items))
	for i, item := range items {
		out[i] = pwLocator{loc: item}
	}
	return out, nil
}

func (l pwLocator) Count() (int, error) {
	return l.loc.Count()
}

func (l pwLocator) InnerText(timeout time.Duration) (string, error) {
	return l.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: ms(timeout)})
}

func (l pwLocator) InnerHTML(timeout time.Duration) (string, error) {
	return l.loc.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: ms(timeout)})
}

func (l pwLocator) Attribute(name string, timeout time.Duration) (string, error) {
	return l.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: ms(timeout)})
}

func (l pwLocator) IsVisible() (bool, error) {
	return l.loc.IsVisible()
}

func (l pwLocator) Click(timeout time.Duration) error {
	return l.loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
}

func (l pwLocator) DispatchClick() error {
	return l.loc.DispatchEvent("click", nil)
}

func (l pwLocator) WaitVisible(timeout time.Duration) error {
	return l.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
}

func (l pwLocator) WaitHidden(timeout time.Duration) error {
	return l.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: ms(timeout),
	})
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
