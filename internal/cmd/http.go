package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"go-jobpost-automation/internal/cache"
	"go-jobpost-automation/internal/network"
	"go-jobpost-automation/internal/scraper/httpsource"
)

type HTTPCmd struct {
	QueryOptions
	Proxies []string `help:"Proxy URLs (overrides http.proxies)." sep:","`
}

func (h *HTTPCmd) Run(app *Context) error {
	cfg := app.Config
	log := app.Logger

	q, err := h.resolve(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxies := cfg.HTTP.Proxies
	if len(h.Proxies) > 0 {
		proxies = h.Proxies
	}
	rotator, err := network.NewRotator(proxies, 10*time.Minute)
	if err != nil {
		return err
	}
	client, err := network.NewClient(rotator, cfg.HTTP.Timeout)
	if err != nil {
		return err
	}

	var pageCache cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "jobpost:")
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis unavailable, fetching without cache")
		} else {
			defer rc.Close()
			pageCache = rc
		}
	}

	pub, err := openPublishing(ctx, app)
	if err != nil {
		return err
	}
	defer pub.Close()

	srcCfg := httpsource.IndeedConfig()
	srcCfg.MaxPages = cfg.HTTP.MaxPages
	if h.MaxPages > 0 {
		srcCfg.MaxPages = h.MaxPages
	}

	runID := uuid.NewString()
	source := httpsource.New(client, srcCfg, log,
		httpsource.WithCache(pageCache),
		httpsource.WithRunID(func() string { return runID }),
	)
	log.Info().Int("proxies", rotator.Len()).Int("pages", srcCfg.MaxPages).Msg("🌍 Starting HTTP source")
	return execute(ctx, app, source, q, runID, pub, nil)
}
