package filter

import (
	"fmt"
	"regexp"
	"strings"

	"go-jobpost-automation/internal/models"
)

// Rules drops listings mentioning an excluded term or lacking every
// required term. Matching is on whole words after normalisation.
type Rules struct {
	exclude *regexp.Regexp
	require *regexp.Regexp
}

func NewRules(exclude, require []string) (*Rules, error) {
	r := &Rules{}
	var err error
	if r.exclude, err = compile(exclude); err != nil {
		return nil, fmt.Errorf("exclude keywords: %w", err)
	}
	if r.require, err = compile(require); err != nil {
		return nil, fmt.Errorf("require keywords: %w", err)
	}
	return r, nil
}

func compile(terms []string) (*regexp.Regexp, error) {
	var alts []string
	for _, t := range terms {
		if t = strings.TrimSpace(Normalize(t)); t != "" {
			alts = append(alts, regexp.QuoteMeta(t))
		}
	}
	if len(alts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`\b(` + strings.Join(alts, "|") + `)\b`)
}

// Check reports whether l passes, and if not, why.
func (r *Rules) Check(l models.JobListing) (bool, string) {
	if r == nil {
		return true, ""
	}
	text := Normalize(l.Title + " " + l.Company + " " + l.Description)
	if r.exclude != nil {
		if m := r.exclude.FindString(text); m != "" {
			return false, fmt.Sprintf("excluded keyword %q", m)
		}
	}
	if r.require != nil && !r.require.MatchString(text) {
		return false, "no required keyword"
	}
	return true, ""
}
