package interactive

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/obstacle"
	"go-jobpost-automation/internal/scraper"
)

// Selectors is the replaceable description of a results view. Field chains
// for title, company and location are resolved inside the listing handle;
// pane title and description chains inside the detail pane.
type Selectors struct {
	SearchURL     string            `json:"searchUrl"`
	QueryParam    string            `json:"queryParam"`
	LocationParam string            `json:"locationParam"`
	ExtraParams   map[string]string `json:"extraParams"`

	ResultsReady string        `json:"resultsReady"`
	Listing      string        `json:"listing"`
	Activate     string        `json:"activate"`
	ListingLink  extract.Chain `json:"listingLink"`
	Title        extract.Chain `json:"title"`
	Company      extract.Chain `json:"company"`
	Location     extract.Chain `json:"location"`

	DetailPane  string          `json:"detailPane"`
	PaneTitle   extract.Chain   `json:"paneTitle"`
	ShowMore    string          `json:"showMore"`
	Description []extract.Chain `json:"description"`
	NextPage    string          `json:"nextPage"`

	Prompts   []obstacle.Prompt  `json:"prompts"`
	Challenge obstacle.Challenge `json:"challenge"`
}

// DefaultSelectors targets the Google Jobs results view.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchURL:   "https://www.google.com/search",
		QueryParam:  "q",
		ExtraParams: map[string]string{"udm": "8", "hl": "en"},

		ResultsReady: "[jsname='tuZ9Re'], #search",
		Listing:      "li.iFjolb, [jsname='tuZ9Re'] > div[role='treeitem']",
		ListingLink: extract.Chain{
			{Name: "card-anchor", Selector: "a[href*='/search?']"},
			{Name: "any-anchor", Selector: "a[href]", Recovers: "card-redesign"},
		},
		Title: extract.Chain{
			{Name: "card-heading", Selector: "div[role='heading']"},
			{Name: "legacy-title", Selector: ".BjJfJf", Recovers: "card-redesign"},
			{Name: "pane-heading", Selector: "h1, h2", Recovers: "direct-navigation"},
		},
		Company: extract.Chain{
			{Name: "card-company", Selector: ".vNEEBe"},
			{Name: "company-attr", Selector: "[data-company]", Recovers: "card-redesign"},
		},
		Location: extract.Chain{
			{Name: "card-location", Selector: ".Qk80Jf"},
			{Name: "location-attr", Selector: "[data-location]", Recovers: "card-redesign"},
		},

		DetailPane: "#tl_ditsc, .whazf",
		PaneTitle: extract.Chain{
			{Name: "pane-heading", Selector: "h2.KLsYvd"},
			{Name: "any-heading", Selector: "h1, h2", Recovers: "pane-redesign"},
		},
		ShowMore: "[aria-label*='more job highlights'], .mLdNec button",
		Description: []extract.Chain{
			{
				{Name: "highlights", Selector: ".HBvzbc"},
				{Name: "highlights-list", Selector: ".JxVj3d", Recovers: "pane-redesign"},
			},
			{
				{Name: "full-description", Selector: ".YgLbBe"},
				{Name: "description-attr", Selector: "[data-description]", Recovers: "pane-redesign"},
			},
		},
		NextPage: "#pnnext",

		Prompts: []obstacle.Prompt{
			{Name: "consent", Container: "#CXQnmb, form[action*='consent']", Dismiss: "#W0wltc"},
			{Name: "sign-in", Container: "[aria-label='Sign in to Google']", Dismiss: "[aria-label='Sign in to Google'] [aria-label='Stay signed out']"},
		},
		Challenge: obstacle.DefaultChallenge(),
	}
}

// LoadSelectors overlays a JSON5 file onto the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sel, nil
		}
		return sel, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return sel, nil
	}
	if err := json5.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	return sel, sel.Validate()
}

func (s Selectors) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"searchUrl", s.SearchURL},
		{"queryParam", s.QueryParam},
		{"resultsReady", s.ResultsReady},
		{"listing", s.Listing},
		{"detailPane", s.DetailPane},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(s.Title) == 0 {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("selectors missing: %s", strings.Join(missing, ", "))
	}
	if len(s.Description) > 2 {
		return fmt.Errorf("selectors: at most 2 description segments, got %d", len(s.Description))
	}
	return nil
}

// BuildSearchURL places the query into the configured parameters. Without a
// location parameter the location is appended to the search term.
func (s Selectors) BuildSearchURL(q scraper.Query) (string, error) {
	u, err := url.Parse(s.SearchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}

	term := strings.TrimSpace(q.SearchTerm)
	location := strings.TrimSpace(q.Location)
	values := u.Query()
	for k, v := range s.ExtraParams {
		values.Set(k, v)
	}
	switch {
	case s.LocationParam != "":
		if location != "" {
			values.Set(s.LocationParam, location)
		}
	case location != "" && !strings.Contains(strings.ToLower(term), strings.ToLower(location)):
		term = strings.TrimSpace(term + " " + location)
	}
	values.Set(s.QueryParam, term)
	u.RawQuery = values.Encode()
	return u.String(), nil
}
