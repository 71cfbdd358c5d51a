package ai

import (
	"context"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/models"
)

// Optimizer replaces a listing's templated SEO content with an AI rewrite.
// It never fails: on error the templated content is kept.
type Optimizer struct {
	client Client
	log    zerolog.Logger
}

func NewOptimizer(client Client, log zerolog.Logger) *Optimizer {
	return &Optimizer{client: client, log: log}
}

func (o *Optimizer) Transform(ctx context.Context, l models.JobListing) models.JobListing {
	if l.Description == models.DescriptionNotFound {
		return l
	}
	content, err := o.client.OptimizeSEO(ctx, l)
	if err != nil {
		o.log.Warn().Err(err).Str("title", l.Title).Msg("⚠️ SEO rewrite failed, keeping template")
		return l
	}
	l.SEOContent = content
	return l
}
