package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-jobpost-automation/internal/ai"
	"go-jobpost-automation/internal/config"
	"go-jobpost-automation/internal/database"
	"go-jobpost-automation/internal/dedup"
	"go-jobpost-automation/internal/filter"
	"go-jobpost-automation/internal/ledger"
	"go-jobpost-automation/internal/scraper"
	"go-jobpost-automation/internal/secrets"
	"go-jobpost-automation/internal/sink"
	"go-jobpost-automation/internal/telegram"
	"go-jobpost-automation/internal/wordpress"
)

// storeCounter reports how many listings a store holds for a source.
type storeCounter interface {
	CountBySource(ctx context.Context, source string) (int, error)
}

// publishing bundles the sink adapter with the resources it holds open.
type publishing struct {
	adapter *sink.Adapter
	ledger  *ledger.Ledger
	bot     *telegram.Bot
	store   storeCounter
	closers []func()
}

func (p *publishing) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// wordpressAccount is the keyring account holding the application password.
func wordpressAccount(username string) string {
	return "wordpress:" + username
}

func openPublishing(ctx context.Context, app *Context) (*publishing, error) {
	cfg := app.Config
	log := app.Logger
	p := &publishing{}

	var pubs sink.Fanout
	for _, name := range cfg.Publish.Publishers {
		pub, err := p.publisher(ctx, app, name)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("publisher %s: %w", name, err)
		}
		pubs = append(pubs, pub)
	}

	if p.bot == nil && cfg.Checkpoint.Notify {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.bot = bot
	}

	seen, err := dedup.NewJobCache(cfg.Publish.CacheDir, cfg.Publish.SeenTTL, log)
	if err != nil {
		p.Close()
		return nil, err
	}

	led, err := ledger.Open(cfg.Publish.LedgerPath)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.ledger = led
	p.closers = append(p.closers, func() {
		if err := led.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Failed to close ledger")
		}
	})

	rules, err := filter.NewRules(cfg.Publish.Exclude, cfg.Publish.Require)
	if err != nil {
		p.Close()
		return nil, err
	}

	var publisher sink.Publisher = pubs
	if len(pubs) == 1 {
		publisher = pubs[0]
	}
	opts := []sink.Option{
		sink.WithSeen(seen),
		sink.WithRecorder(led),
		sink.WithRules(rules),
		sink.WithSpacing(cfg.Publish.Spacing),
	}
	if cfg.AI.Enabled {
		client := ai.NewGrokClient(cfg.AI.APIKey, ai.WithModel(cfg.AI.Model), ai.WithEndpoint(cfg.AI.Endpoint))
		opts = append(opts, sink.WithTransformer(ai.NewOptimizer(client, log)))
		log.Info().Msg("🤖 AI SEO rewrite enabled")
	}
	p.adapter = sink.NewAdapter(publisher, log, opts...)
	log.Info().Strs("publishers", cfg.Publish.Publishers).Int("seen", seen.Len()).Msg("📮 Publishing ready")
	return p, nil
}

func (p *publishing) publisher(ctx context.Context, app *Context, name string) (sink.Publisher, error) {
	cfg, log := app.Config, app.Logger
	switch name {
	case config.PublisherStdout:
		// Keep stdout clean for the JSON report.
		if app.JSONOutput {
			return sink.NewStdout(app.Err), nil
		}
		return sink.NewStdout(app.Out), nil
	case config.PublisherJSON:
		return sink.NewJSONFile(cfg.Publish.OutputDir), nil
	case config.PublisherWordPress:
		password, err := secrets.Lookup(cfg.WordPress.Password, wordpressAccount(cfg.WordPress.Username))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
		if password == "" {
			return nil, errors.New("no application password: set WORDPRESS_APP_PASSWORD or run `secret set`")
		}
		return wordpress.New(cfg.WordPress.URL, cfg.WordPress.Username, password, wordpress.WithStatus(cfg.WordPress.Status)), nil
	case config.PublisherTelegram:
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		p.bot = bot
		return bot, nil
	case config.PublisherPostgres:
		repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, repo.Close)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("🐘 Connected to Postgres")
		p.store = repo
		return repo, nil
	}
	return nil, fmt.Errorf("unknown publisher %q", name)
}

// finish prints the report and forwards the summary to Telegram when a bot
// is configured.
func (p *publishing) finish(ctx context.Context, app *Context, report *scraper.Report) error {
	if p.bot != nil {
		if err := p.bot.SendStatus(report.Summary()); err != nil {
			app.Logger.Warn().Err(err).Msg("⚠️ Failed to send run summary")
		}
	}
	stored := -1
	if p.store != nil {
		n, err := p.store.CountBySource(context.WithoutCancel(ctx), report.Source)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("⚠️ Failed to count stored listings")
		} else {
			stored = n
			app.Logger.Info().Str("source", report.Source).Int("stored", n).Msg("🐘 Listings in Postgres")
		}
	}
	return writeReport(app, report, stored)
}

// writeReport prints the report. stored is the Postgres total for the
// report's source, or -1 when unknown.
func writeReport(app *Context, report *scraper.Report, stored int) error {
	if app.JSONOutput {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	var sb strings.Builder
	sb.WriteString(report.Summary())
	sb.WriteString("\n")
	for _, s := range report.Skipped {
		fmt.Fprintf(&sb, "  skipped page %d #%d: %s\n", s.Page, s.Index, s.Reason)
	}
	if stored >= 0 {
		fmt.Fprintf(&sb, "  %d %s listings stored in Postgres\n", stored, report.Source)
	}
	_, err := fmt.Fprint(app.Out, sb.String())
	return err
}
