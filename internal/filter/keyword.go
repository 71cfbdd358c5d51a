package filter

import "strings"

// search terms often carry words that describe the query, not the job
var queryNoise = map[string]bool{
	"job": true, "jobs": true, "in": true, "at": true, "for": true, "near": true,
	"since": true, "yesterday": true, "today": true, "week": true,
}

// FocusKeyword returns the search-term words that also appear in title,
// in search-term order. It returns "" when nothing overlaps.
func FocusKeyword(searchTerm, title string) string {
	inTitle := make(map[string]bool)
	for _, w := range words(title) {
		inTitle[w] = true
	}

	var picked []string
	seen := make(map[string]bool)
	for _, w := range words(searchTerm) {
		if queryNoise[w] || seen[w] || !inTitle[w] {
			continue
		}
		seen[w] = true
		picked = append(picked, w)
	}
	return strings.Join(picked, " ")
}
