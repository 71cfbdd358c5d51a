package obstacle

import (
	"context"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobpost-automation/internal/surface"
	"go-jobpost-automation/internal/surface/surfacetest"
)

var consent = Prompt{Name: "consent", Container: "#consent", Dismiss: "#consent .reject"}

type gateFunc func(ctx context.Context, reason string) error

func (f gateFunc) Await(ctx context.Context, reason string) error { return f(ctx, reason) }

type shotRecorder struct{ names []string }

func (s *shotRecorder) Capture(page surface.Page, name string) (string, error) {
	s.names = append(s.names, name)
	path := "logs/screenshots/" + name + ".png"
	return path, page.Screenshot(path)
}

func hideOnClick(page *surfacetest.Page) {
	page.OnClick("#consent .reject", func(p *surfacetest.Page, _ *goquery.Selection) {
		p.Hide("#consent")
	})
}

func TestClearNoObstacleIsNoop(t *testing.T) {
	page := surfacetest.NewPage(`<html><head><title>Jobs</title></head><body><ul id="results"></ul></body></html>`)
	awaited := 0
	h := NewHandler([]Prompt{consent}, DefaultChallenge(), gateFunc(func(context.Context, string) error {
		awaited++
		return nil
	}), zerolog.Nop())

	require.NoError(t, h.Clear(context.Background(), page))
	require.NoError(t, h.Clear(context.Background(), page))
	assert.Zero(t, awaited)
	assert.Empty(t, page.Clicks)
	assert.Empty(t, page.Dispatched)
}

func TestClearDismissesPrompt(t *testing.T) {
	page := surfacetest.NewPage(`<body><div id="consent"><button class="reject">No thanks</button></div></body>`)
	hideOnClick(page)
	h := NewHandler([]Prompt{consent}, Challenge{}, nil, zerolog.Nop())

	require.NoError(t, h.Clear(context.Background(), page))
	assert.Len(t, page.Clicks, 1)
	visible, _ := page.Locator("#consent").IsVisible()
	assert.False(t, visible)

	require.NoError(t, h.Clear(context.Background(), page))
	assert.Len(t, page.Clicks, 1, "hidden prompt is not clicked again")
}

func TestClearFallsBackToDispatchWhenIntercepted(t *testing.T) {
	page := surfacetest.NewPage(`<body><div id="consent" data-intercepted><button class="reject">No</button></div></body>`)
	hideOnClick(page)
	h := NewHandler([]Prompt{consent}, Challenge{}, nil, zerolog.Nop())

	require.NoError(t, h.Clear(context.Background(), page))
	assert.Empty(t, page.Clicks)
	assert.Len(t, page.Dispatched, 1)
	visible, _ := page.Locator("#consent").IsVisible()
	assert.False(t, visible)
}

func TestClearSuspendsOnChallenge(t *testing.T) {
	page := surfacetest.NewPage(`<html><head><title>Just a moment...</title></head><body></body></html>`)
	shots := &shotRecorder{}
	var reasons []string
	gate := gateFunc(func(_ context.Context, reason string) error {
		reasons = append(reasons, reason)
		page.Load(`<html><head><title>Jobs</title></head><body></body></html>`)
		return nil
	})
	h := NewHandler(nil, DefaultChallenge(), gate, zerolog.Nop(), WithCapturer(shots))

	require.NoError(t, h.Clear(context.Background(), page))
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "Just a moment")
	assert.Equal(t, []string{"challenge"}, shots.names)
	assert.Len(t, page.Shots, 1)

	require.NoError(t, h.Clear(context.Background(), page))
	assert.Len(t, reasons, 1, "solved challenge does not suspend again")
}

func TestClearDetectsChallengeBySelector(t *testing.T) {
	page := surfacetest.NewPage(`<body><iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe></body>`)
	var got string
	h := NewHandler(nil, DefaultChallenge(), gateFunc(func(_ context.Context, reason string) error {
		got = reason
		return nil
	}), zerolog.Nop())

	require.NoError(t, h.Clear(context.Background(), page))
	assert.Contains(t, got, "recaptcha")
}

func TestClearPropagatesGateFailure(t *testing.T) {
	page := surfacetest.NewPage(`<html><head><title>Attention Required!</title></head></html>`)
	boom := errors.New("operator gone")
	h := NewHandler(nil, DefaultChallenge(), gateFunc(func(context.Context, string) error { return boom }), zerolog.Nop())

	assert.ErrorIs(t, h.Clear(context.Background(), page), boom)
}

func TestClearHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHandler(nil, DefaultChallenge(), nil, zerolog.Nop())
	assert.ErrorIs(t, h.Clear(ctx, surfacetest.NewPage(`<body></body>`)), context.Canceled)
}
