// Package obstacle clears interstitials that block interaction with the
// results view: dismissible prompts and verification challenges.
package obstacle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/checkpoint"
	"go-jobpost-automation/internal/surface"
)

// Prompt is a dismissible overlay such as a consent or survey modal.
type Prompt struct {
	Name      string `json:"name"`
	Container string `json:"container"`
	Dismiss   string `json:"dismiss"`
}

// Challenge describes how an automated-verification page is recognised.
type Challenge struct {
	TitleMarkers []string `json:"titleMarkers"`
	Selectors    []string `json:"selectors"`
}

func DefaultChallenge() Challenge {
	return Challenge{
		TitleMarkers: []string{"Just a moment", "Attention Required", "Cloudflare", "unusual traffic"},
		Selectors:    []string{"iframe[src*='recaptcha']", "#captcha-form", ".captcha", "[data-captcha]"},
	}
}

// Capturer saves evidence of a detected challenge.
type Capturer interface {
	Capture(page surface.Page, name string) (string, error)
}

type Handler struct {
	prompts   []Prompt
	challenge Challenge
	gate      checkpoint.Gate
	shots     Capturer
	timeout   time.Duration
	log       zerolog.Logger
}

type Option func(*Handler)

// WithCapturer screenshots the page before suspending on a challenge.
func WithCapturer(c Capturer) Option {
	return func(h *Handler) { h.shots = c }
}

// WithTimeout bounds each dismissal click and hide wait.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

func NewHandler(prompts []Prompt, challenge Challenge, gate checkpoint.Gate, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		prompts:   prompts,
		challenge: challenge,
		gate:      gate,
		timeout:   2 * time.Second,
		log:       log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clear dismisses any visible prompt and parks on a verification challenge
// until the checkpoint gate releases. It is a no-op on a clean page and safe
// to call repeatedly. Only cancellation or a failed checkpoint is returned.
func (h *Handler) Clear(ctx context.Context, page surface.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if reason, found := h.detectChallenge(page); found {
		if err := h.suspend(ctx, page, reason); err != nil {
			return err
		}
	}

	for _, p := range h.prompts {
		h.dismiss(page, p)
	}
	return nil
}

func (h *Handler) detectChallenge(page surface.Page) (string, bool) {
	title, _ := page.Title()
	for _, marker := range h.challenge.TitleMarkers {
		if marker != "" && strings.Contains(title, marker) {
			return fmt.Sprintf("verification challenge (title %q)", title), true
		}
	}
	for _, sel := range h.challenge.Selectors {
		if visible, _ := page.Locator(sel).First().IsVisible(); visible {
			return fmt.Sprintf("verification challenge (%s)", sel), true
		}
	}
	return "", false
}

func (h *Handler) suspend(ctx context.Context, page surface.Page, reason string) error {
	h.log.Warn().Str("reason", reason).Str("url", page.URL()).Msg("🛡️ Verification challenge detected, waiting for operator")

	if h.shots != nil {
		if path, err := h.shots.Capture(page, "challenge"); err != nil {
			h.log.Warn().Err(err).Msg("⚠️ Failed to capture challenge screenshot")
		} else {
			h.log.Info().Str("path", path).Msg("📸 Challenge screenshot saved")
		}
	}

	if h.gate == nil {
		h.log.Warn().Msg("⚠️ No checkpoint configured, continuing without operator")
		return nil
	}
	if err := h.gate.Await(ctx, reason); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	h.log.Info().Msg("▶️ Checkpoint released, resuming")
	return nil
}

func (h *Handler) dismiss(page surface.Page, p Prompt) {
	container := page.Locator(p.Container).First()
	if visible, _ := container.IsVisible(); !visible {
		return
	}
	log := h.log.With().Str("prompt", p.Name).Logger()
	log.Info().Msg("🧹 Dismissing prompt")

	button := page.Locator(p.Dismiss).First()
	if err := button.Click(h.timeout); err != nil {
		log.Debug().Err(err).Msg("click failed, dispatching")
		if err := button.DispatchClick(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Could not dismiss prompt")
			return
		}
	}
	if err := container.WaitHidden(h.timeout); err != nil {
		log.Debug().Err(err).Msg("prompt still visible after dismissal")
	}
}
