package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/surface"
)

type Options struct {
	Headless  bool
	SlowMo    float64
	UserAgent string
	Locale    string
	Width     int
	Height    int
}

// Manager owns the playwright driver and a single browser process.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	log     zerolog.Logger
}

func NewManager(opts Options, log zerolog.Logger) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(opts.SlowMo),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	log.Info().Bool("headless", opts.Headless).Msg("🌐 Browser launched")
	return &Manager{pw: pw, browser: b, opts: opts, log: log}, nil
}

// NewContext opens an isolated browser context with stealth patches and
// the given cookies installed.
func (m *Manager) NewContext(cookies []playwright.OptionalCookie) (playwright.BrowserContext, error) {
	var options playwright.BrowserNewContextOptions
	if m.opts.Locale != "" {
		options.Locale = playwright.String(m.opts.Locale)
	}
	if m.opts.UserAgent != "" {
		options.UserAgent = playwright.String(m.opts.UserAgent)
	}
	if m.opts.Width > 0 && m.opts.Height > 0 {
		options.Viewport = &playwright.Size{Width: m.opts.Width, Height: m.opts.Height}
	}

	bctx, err := m.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		bctx.Close()
		return nil, fmt.Errorf("install stealth script: %w", err)
	}
	if len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("add cookies: %w", err)
		}
		m.log.Info().Int("count", len(cookies)).Msg("🍪 Cookies installed")
	}
	return bctx, nil
}

// OpenPage creates a context and page and wraps the page as a driven surface.
// The returned func closes the context.
func (m *Manager) OpenPage(cookies []playwright.OptionalCookie) (surface.Page, func() error, error) {
	bctx, err := m.NewContext(cookies)
	if err != nil {
		return nil, nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, nil, fmt.Errorf("new page: %w", err)
	}
	return surface.FromPlaywright(page), func() error { return bctx.Close() }, nil
}

func (m *Manager) Close() error {
	if err := m.browser.Close(); err != nil {
		m.log.Warn().Err(err).Msg("⚠️ Failed to close browser")
	}
	return m.pw.Stop()
}
