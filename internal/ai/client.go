package ai

import (
	"context"
	"fmt"

	"go-jobpost-automation/internal/models"
)

// Client is the interface for AI providers
type Client interface {
	// OptimizeSEO rewrites a listing into search-optimised post HTML.
	OptimizeSEO(ctx context.Context, listing models.JobListing) (string, error)
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `You are an expert SEO content writer specializing in job postings.
Rewrite the job posting you are given so it ranks well in search while staying professional and accurate.

Rules:
1. Keep every fact (title, company, location, requirements). Do NOT invent salary, benefits or requirements.
2. Use the focus keyword naturally in the first paragraph and in one subheading.
3. Structure the post with <h2>/<h3> subheadings, short <p> paragraphs and <ul> lists for requirements.
4. Return ONLY the HTML body. Do NOT wrap it in markdown blocks and do not add <html> or <body> tags.`
}

// buildUserPrompt creates the user message from the listing fields
func buildUserPrompt(l models.JobListing) string {
	return fmt.Sprintf("Focus keyword: %s\n\nJob Title: %s\nCompany: %s\nLocation: %s\nApply URL: %s\n\nDescription:\n%s",
		l.Keyword(), l.Title, l.Company, l.Location, l.URL, l.Description)
}
