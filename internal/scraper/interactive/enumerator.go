package interactive

import "go-jobpost-automation/internal/surface"

// Enumerator lists the listing handles currently on the results view.
// Handles are positional, so callers re-enumerate before every access
// instead of holding on to a handle across an interaction.
type Enumerator struct {
	selector string
}

func NewEnumerator(selector string) Enumerator {
	return Enumerator{selector: selector}
}

func (e Enumerator) Current(page surface.Page) ([]surface.Locator, error) {
	return page.Locator(e.selector).All()
}

// At re-enumerates and returns handle i. ok is false when the list has
// shrunk below i+1.
func (e Enumerator) At(page surface.Page, i int) (surface.Locator, bool, error) {
	handles, err := e.Current(page)
	if err != nil {
		return nil, false, err
	}
	if i < 0 || i >= len(handles) {
		return nil, false, nil
	}
	return handles[i], true, nil
}
