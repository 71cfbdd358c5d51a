// Package scraper defines the contract shared by all listing sources.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go-jobpost-automation/internal/models"
)

type Query struct {
	SearchTerm string `json:"search_term"`
	Location   string `json:"location"`
}

// Emitter hands one validated listing to the sink and reports whether it
// was published. Sources call it synchronously, one record at a time.
type Emitter func(ctx context.Context, listing models.JobListing) bool

// Scraper is implemented by every listing source.
type Scraper interface {
	// Scrape runs one session and returns whatever it managed to collect.
	Scrape(ctx context.Context, q Query, emit Emitter) (*Report, error)

	// Name is the source name written into each listing.
	Name() string
}

// Termination tells why a session stopped.
type Termination string

const (
	Exhausted        Termination = "exhausted"
	Shrank           Termination = "shrank"
	Cancelled        Termination = "cancelled"
	ResultsLost      Termination = "results_lost"
	Aborted          Termination = "aborted"
	NavigationFailed Termination = "navigation_failed"
)

type Skip struct {
	Page   int    `json:"page"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Report summarises one session. Records holds every emitted listing in
// emission order, published or not.
type Report struct {
	RunID       string              `json:"run_id"`
	Source      string              `json:"source"`
	Query       Query               `json:"query"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Records     []models.JobListing `json:"records"`
	Skipped     []Skip              `json:"skipped"`
	Published   int                 `json:"published"`
	Termination Termination         `json:"termination"`
}

func NewReport(runID, source string, q Query) *Report {
	return &Report{RunID: runID, Source: source, Query: q, StartedAt: time.Now()}
}

// Emit records the listing and forwards it to emit.
func (r *Report) Emit(ctx context.Context, emit Emitter, l models.JobListing) {
	r.Records = append(r.Records, l)
	if emit != nil && emit(ctx, l) {
		r.Published++
	}
}

func (r *Report) Skip(page, index int, reason string) {
	r.Skipped = append(r.Skipped, Skip{Page: page, Index: index, Reason: reason})
}

// Finish stamps the end time and termination reason.
func (r *Report) Finish(t Termination) *Report {
	r.FinishedAt = time.Now()
	r.Termination = t
	return r
}

func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d records, %d skipped, %d published (%s) in %s",
		r.Source, len(r.Records), len(r.Skipped), r.Published, r.Termination,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
}
