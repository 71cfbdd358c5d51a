// Package httpsource is the request/parse alternate listing source: it
// pages through a static results listing and fetches each detail page.
package httpsource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"go-jobpost-automation/internal/cache"
	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/filter"
	"go-jobpost-automation/internal/models"
	"go-jobpost-automation/internal/scraper"
)

// Fetcher returns the body of a GET request. network.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

type Config struct {
	Name     string
	BaseURL  string
	Path     string
	MaxPages int
	PageSize int
	// Spacing is the minimum gap between two requests.
	Spacing  time.Duration
	CacheTTL time.Duration

	Card        string
	Title       string
	Company     string
	Location    string
	Link        string
	Description string
}

// IndeedConfig reproduces the Indeed search layout.
func IndeedConfig() Config {
	return Config{
		Name:        "indeed",
		BaseURL:     "https://www.indeed.com",
		Path:        "/jobs",
		MaxPages:    3,
		PageSize:    10,
		Spacing:     2 * time.Second,
		CacheTTL:    6 * time.Hour,
		Card:        "div.job_seen_beacon",
		Title:       "h2.jobTitle",
		Company:     "span.companyName, [data-testid='company-name']",
		Location:    "div.companyLocation, [data-testid='text-location']",
		Link:        "a.jcs-JobTitle",
		Description: "div.jobsearch-jobDescriptionText, #jobDescriptionText",
	}
}

type Source struct {
	fetch    Fetcher
	cache    cache.Cache
	limiter  *rate.Limiter
	cfg      Config
	newRunID func() string
	log      zerolog.Logger
}

type Option func(*Source)

func WithCache(c cache.Cache) Option {
	return func(s *Source) { s.cache = c }
}

func WithRunID(fn func() string) Option {
	return func(s *Source) { s.newRunID = fn }
}

func New(fetch Fetcher, cfg Config, log zerolog.Logger, opts ...Option) *Source {
	limit := rate.Inf
	if cfg.Spacing > 0 {
		limit = rate.Every(cfg.Spacing)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	s := &Source{
		fetch:    fetch,
		cache:    cache.Nop{},
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		newRunID: uuid.NewString,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return s.cfg.Name
}

// Scrape walks result pages until MaxPages or a page without cards. A failed
// first page is returned as an error; later failures end the run early.
func (s *Source) Scrape(ctx context.Context, q scraper.Query, emit scraper.Emitter) (*scraper.Report, error) {
	report := scraper.NewReport(s.newRunID(), s.cfg.Name, q)
	log := s.log.With().Str("run_id", report.RunID).Str("source", s.cfg.Name).Logger()

	for page := 0; page < s.cfg.MaxPages; page++ {
		target := s.searchURL(q, page)
		body, err := s.get(ctx, target, s.pageKey(q, page))
		if err != nil {
			if ctx.Err() != nil {
				return report.Finish(scraper.Cancelled), nil
			}
			if page == 0 {
				return report.Finish(scraper.NavigationFailed), fmt.Errorf("fetch %s: %w", target, err)
			}
			log.Warn().Err(err).Int("page", page).Msg("⚠️ Page fetch failed, stopping")
			return report.Finish(scraper.ResultsLost), nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return report.Finish(scraper.ResultsLost), nil
		}
		cards := doc.Find(s.cfg.Card)
		log.Info().Int("page", page).Int("cards", cards.Length()).Msg("📦 Page parsed")
		if cards.Length() == 0 {
			break
		}

		for i := range cards.Length() {
			if ctx.Err() != nil {
				return report.Finish(scraper.Cancelled), nil
			}
			listing, reason := s.listing(ctx, q, target, cards.Eq(i))
			if reason != "" {
				log.Warn().Int("page", page).Int("index", i).Str("reason", reason).Msg("⏭️ Skipping listing")
				report.Skip(page, i, reason)
				continue
			}
			log.Info().Str("title", listing.Title).Str("company", listing.Company).Msg("✅ Extracted listing")
			report.Emit(ctx, emit, listing)
		}
	}

	report.Finish(scraper.Exhausted)
	log.Info().Msg("🏁 " + report.Summary())
	return report, nil
}

func (s *Source) listing(ctx context.Context, q scraper.Query, pageURL string, card *goquery.Selection) (models.JobListing, string) {
	title := extract.CleanLine(card.Find(s.cfg.Title).First().Text())
	company := extract.CleanLine(card.Find(s.cfg.Company).First().Text())
	location := extract.CleanLine(card.Find(s.cfg.Location).First().Text())
	href, _ := card.Find(s.cfg.Link).First().Attr("href")
	link := resolve(pageURL, href)

	var description string
	if link != "" {
		body, err := s.get(ctx, link, "detail:"+link)
		if err != nil {
			s.log.Debug().Err(err).Str("url", link).Msg("detail fetch failed")
		} else if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
			if markup, err := doc.Find(s.cfg.Description).First().Html(); err == nil {
				description = extract.TextFromMarkup(markup)
			}
		}
	}

	listing, err := models.Assemble(models.Candidate{
		Title:        title,
		Company:      company,
		Location:     location,
		Description:  description,
		URL:          link,
		Source:       s.cfg.Name,
		FocusKeyword: filter.FocusKeyword(q.SearchTerm, title),
	}, time.Now())
	if err != nil {
		return models.JobListing{}, err.Error()
	}
	return listing, ""
}

// get serves target from cache or fetches it after waiting for the limiter.
func (s *Source) get(ctx context.Context, target, key string) (string, error) {
	if body, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return body, nil
	} else if err != nil {
		s.log.Debug().Err(err).Msg("cache read failed")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := s.fetch.Fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if s.cfg.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, body, s.cfg.CacheTTL); err != nil {
			s.log.Debug().Err(err).Msg("cache write failed")
		}
	}
	return body, nil
}

func (s *Source) searchURL(q scraper.Query, page int) string {
	values := url.Values{}
	values.Set("q", q.SearchTerm)
	if q.Location != "" {
		values.Set("l", q.Location)
	}
	values.Set("start", strconv.Itoa(page*s.cfg.PageSize))
	return strings.TrimRight(s.cfg.BaseURL, "/") + s.cfg.Path + "?" + values.Encode()
}

func (s *Source) pageKey(q scraper.Query, page int) string {
	return fmt.Sprintf("page:%s:%s:%s:%d", s.cfg.Name, strings.ToLower(q.SearchTerm), strings.ToLower(q.Location), page)
}

func resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}
