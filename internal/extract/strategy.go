package extract

import "strings"

// Strategy is one named way of locating a field. Recovers records the
// presentation drift it exists to survive, e.g. "card-redesign".
type Strategy struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Recovers string `json:"recovers,omitempty"`
}

// Chain is an ordered list of strategies tried first to last.
type Chain []Strategy

func (c Chain) String() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		name := s.Name
		if name == "" {
			name = s.Selector
		}
		names = append(names, name)
	}
	return strings.Join(names, " > ")
}

// Selectors builds an unnamed chain from raw selectors.
func Selectors(selectors ...string) Chain {
	chain := make(Chain, 0, len(selectors))
	for _, sel := range selectors {
		chain = append(chain, Strategy{Name: sel, Selector: sel})
	}
	return chain
}
