// Package surface describes the interactive page a session drives. The
// playwright adapter is the production implementation; surfacetest provides
// an in-memory one.
package surface

import "time"

// Scope resolves selectors relative to itself.
type Scope interface {
	Locator(selector string) Locator
}

// Locator is a lazy reference to zero or more elements. It is re-resolved
// against the live page on every call.
type Locator interface {
	Scope
	First() Locator
	Nth(index int) Locator
	All() ([]Locator, error)
	Count() (int, error)

	InnerText(timeout time.Duration) (string, error)
	InnerHTML(timeout time.Duration) (string, error)
	Attribute(name string, timeout time.Duration) (string, error)
	IsVisible() (bool, error)

	Click(timeout time.Duration) error
	// DispatchClick fires a click event directly on the element, bypassing
	// overlays that intercept pointer events.
	DispatchClick() error
	WaitVisible(timeout time.Duration) error
	WaitHidden(timeout time.Duration) error
}

// Page is the exclusively owned browsing surface.
type Page interface {
	Scope
	Goto(url string, timeout time.Duration) error
	Title() (string, error)
	URL() string
	Scroll(dy float64) error
	Screenshot(path string) error
}
