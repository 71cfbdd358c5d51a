package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go-jobpost-automation/internal/api"
	"go-jobpost-automation/internal/browser"
	"go-jobpost-automation/internal/checkpoint"
	"go-jobpost-automation/internal/config"
	"go-jobpost-automation/internal/extract"
	"go-jobpost-automation/internal/obstacle"
	"go-jobpost-automation/internal/scraper"
	"go-jobpost-automation/internal/scraper/interactive"
	"go-jobpost-automation/internal/surface"
)

type QueryOptions struct {
	Term     string `arg:"" optional:"" help:"Search term (defaults to search.term from the config)."`
	Location string `help:"Location (defaults to search.location from the config)."`
	MaxPages int    `help:"Result pages to visit."`
}

func (o QueryOptions) resolve(cfg *config.Config) (scraper.Query, error) {
	q := scraper.Query{SearchTerm: strings.TrimSpace(o.Term), Location: strings.TrimSpace(o.Location)}
	if q.SearchTerm == "" {
		q.SearchTerm = strings.TrimSpace(cfg.Search.Term)
	}
	if q.Location == "" {
		q.Location = strings.TrimSpace(cfg.Search.Location)
	}
	if q.SearchTerm == "" {
		return q, errors.New("search term is required (argument or search.term)")
	}
	return q, nil
}

type RunCmd struct {
	QueryOptions
	Selectors string `help:"JSON5 selector file overriding the built-in result view."`
	Headful   bool   `help:"Show the browser window."`
	NoAPI     bool   `name:"no-api" help:"Do not start the status API."`
}

// sessionConfig maps the configured timeouts onto the interactive session.
func sessionConfig(cfg *config.Config, maxPages int) interactive.Config {
	sc := interactive.DefaultConfig()
	t := cfg.Timeouts
	sc.NavigationTimeout = t.Navigation
	sc.ResultsTimeout = t.Results
	sc.DetailTimeout = t.Detail
	sc.ActionTimeout = t.Action
	sc.FieldTimeout = t.Field
	sc.ExpandSettle = t.ExpandSettle
	sc.InterListingDelay = t.InterListing
	sc.Retry = extract.RetryPolicy{MaxAttempts: t.RetryAttempts, Delay: t.RetryDelay}
	sc.MaxPages = cfg.Search.MaxPages
	if maxPages > 0 {
		sc.MaxPages = maxPages
	}
	sc.MaxListings = cfg.Search.MaxListings
	return sc
}

// gate combines the enabled checkpoint gates. A nil gate means challenges
// are logged and the session carries on.
func gate(app *Context, remote *checkpoint.Remote, notifier checkpoint.Notifier) checkpoint.Gate {
	var gates []checkpoint.Gate
	if app.Config.Checkpoint.Console {
		gates = append(gates, checkpoint.NewConsole(app.In, app.Err))
	}
	if remote != nil {
		gates = append(gates, remote)
	}
	if len(gates) == 0 {
		return nil
	}
	g := checkpoint.Any(gates...)
	if notifier != nil {
		g = checkpoint.WithNotifier(g, notifier, app.Logger)
	}
	return g
}

func (r *RunCmd) Run(app *Context) error {
	cfg := app.Config
	log := app.Logger

	q, err := r.resolve(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := browser.AcquireLock(cfg.Browser.LockPath)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	selPath := cfg.Browser.SelectorsPath
	if r.Selectors != "" {
		selPath = r.Selectors
	}
	sel, err := interactive.LoadSelectors(selPath)
	if err != nil {
		return err
	}

	pub, err := openPublishing(ctx, app)
	if err != nil {
		return err
	}
	defer pub.Close()

	var remote *checkpoint.Remote
	if cfg.Checkpoint.Remote {
		remote = checkpoint.NewRemote()
	}
	var notifier checkpoint.Notifier
	if cfg.Checkpoint.Notify && pub.bot != nil {
		notifier = pub.bot
	}

	mgr, err := browser.NewManager(browser.Options{
		Headless:  cfg.Browser.Headless && !r.Headful,
		SlowMo:    cfg.Browser.SlowMo,
		UserAgent: cfg.Browser.UserAgent,
		Locale:    cfg.Browser.Locale,
		Width:     cfg.Browser.Width,
		Height:    cfg.Browser.Height,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Failed to stop playwright")
		}
	}()

	cookies, err := browser.LoadCookies(cfg.Browser.CookiesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Browser.CookiesPath).Msg("⚠️ No cookies loaded, continuing without session")
	}
	page, closePage, err := mgr.OpenPage(cookies)
	if err != nil {
		return err
	}
	defer func() { _ = closePage() }()

	debugger, err := browser.NewDebugger(cfg.Browser.ScreenshotDir, log)
	if err != nil {
		return err
	}
	obstacles := obstacle.NewHandler(sel.Prompts, sel.Challenge, gate(app, remote, notifier), log,
		obstacle.WithCapturer(debugger),
		obstacle.WithTimeout(cfg.Timeouts.Action),
	)

	runID := uuid.NewString()
	session := interactive.NewSession(page, sel, obstacles, sessionConfig(cfg, r.MaxPages), log,
		interactive.WithRunID(func() string { return runID }),
		interactive.WithWarmup(func(ctx context.Context, page surface.Page) error {
			return browser.HumanScroll(ctx, page, 3, 800*time.Millisecond)
		}),
	)

	var server *api.Server
	if !r.NoAPI {
		server = api.NewServer(remote, pub.ledger, log)
	}
	return execute(ctx, app, session, q, runID, pub, server)
}

// execute runs one session and, when server is set, the status API next
// to it. The API stops when the session ends.
func execute(ctx context.Context, app *Context, s scraper.Scraper, q scraper.Query, runID string, pub *publishing, server *api.Server) error {
	emit := pub.adapter.ForRun(runID).Emit

	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if server != nil {
		server.Started(runID)
		g.Go(func() error {
			// The API is optional: the session keeps running without it.
			if err := server.Run(srvCtx, app.Config.API.Addr); err != nil {
				app.Logger.Warn().Err(err).Str("addr", app.Config.API.Addr).Msg("⚠️ Status API unavailable, remote checkpoints cannot be released")
			}
			return nil
		})
	}

	var report *scraper.Report
	g.Go(func() error {
		defer stopServer()
		var err error
		report, err = s.Scrape(gctx, q, emit)
		if server != nil && report != nil {
			server.Finished(report)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		return nil
	})

	err := g.Wait()
	if report != nil {
		if werr := pub.finish(ctx, app, report); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
