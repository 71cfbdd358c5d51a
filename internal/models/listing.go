package models

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"time"
)

// DescriptionNotFound marks a listing whose description was looked for and not found.
const DescriptionNotFound = "Description not found"

var ErrInvalidListing = errors.New("listing requires title and company")

// JobListing is the record handed to publishers. PostedDate is the extraction
// time, not the source's posting date.
type JobListing struct {
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	PostedDate   time.Time `json:"posted_date"`
	SEOContent   string    `json:"seo_content"`
	FocusKeyword *string   `json:"focus_keyword,omitempty"`
}

// Candidate holds extracted fields before validation.
type Candidate struct {
	Title        string
	Company      string
	Location     string
	Description  string
	URL          string
	Source       string
	FocusKeyword string
}

func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.Title) != "" && strings.TrimSpace(c.Company) != ""
}

// Assemble validates the candidate and builds a listing stamped with extractedAt.
func Assemble(c Candidate, extractedAt time.Time) (JobListing, error) {
	if !c.Valid() {
		return JobListing{}, ErrInvalidListing
	}
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}

	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = DescriptionNotFound
	}

	listing := JobListing{
		Title:       strings.TrimSpace(c.Title),
		Company:     strings.TrimSpace(c.Company),
		Location:    strings.TrimSpace(c.Location),
		Description: description,
		URL:         strings.TrimSpace(c.URL),
		Source:      c.Source,
		PostedDate:  extractedAt,
	}
	if kw := strings.TrimSpace(c.FocusKeyword); kw != "" {
		listing.FocusKeyword = &kw
	}
	listing.SEOContent = RenderSEOContent(listing)
	return listing, nil
}

// Key identifies a listing for dedup: the canonical URL when known,
// otherwise title and company.
func (l JobListing) Key() string {
	if l.URL != "" {
		return strings.ToLower(l.URL)
	}
	return strings.ToLower(l.Title + "|" + l.Company)
}

// Keyword returns the focus keyword, falling back to the title.
func (l JobListing) Keyword() string {
	if l.FocusKeyword != nil && *l.FocusKeyword != "" {
		return *l.FocusKeyword
	}
	return l.Title
}

// MetaDescription is the description cut to 160 characters.
func (l JobListing) MetaDescription() string {
	runes := []rune(l.Description)
	if len(runes) > 160 {
		return string(runes[:157]) + "..."
	}
	return l.Description
}

var seoTemplate = template.Must(template.New("seo").Parse(`<h2>{{.Title}} at {{.Company}}</h2>
{{if .Location}}<p><strong>Location:</strong> {{.Location}}</p>
{{end}}<p><strong>Posted:</strong> {{.PostedDate.Format "2006-01-02"}}</p>
<div class="job-description">{{range .Paragraphs}}<p>{{.}}</p>{{end}}</div>
{{if .URL}}<p><a href="{{.URL}}" rel="nofollow">Apply for {{.Title}}</a></p>
{{end}}`))

type seoView struct {
	JobListing
	Paragraphs []string
}

// RenderSEOContent renders the composite post body for a listing.
func RenderSEOContent(l JobListing) string {
	view := seoView{JobListing: l}
	for _, p := range strings.Split(l.Description, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			view.Paragraphs = append(view.Paragraphs, p)
		}
	}

	var buf bytes.Buffer
	if err := seoTemplate.Execute(&buf, view); err != nil {
		return l.Title + " - " + l.Company
	}
	return buf.String()
}
