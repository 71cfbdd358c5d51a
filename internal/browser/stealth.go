package browser

import (
	"context"
	"math/rand"
	"time"

	"go-jobpost-automation/internal/surface"
)

const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
window.chrome = window.chrome || { runtime: {} };
`

// RandomDelay waits between min and max, or until ctx ends.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HumanScroll scrolls down in uneven steps and corrects back up a little,
// which also triggers lazy-loaded result cards.
func HumanScroll(ctx context.Context, page surface.Page, steps int, pause time.Duration) error {
	for i := 0; i < steps; i++ {
		if err := page.Scroll(float64(300 + rand.Intn(300))); err != nil {
			return err
		}
		if err := RandomDelay(ctx, pause/2, pause); err != nil {
			return err
		}
	}
	return page.Scroll(-200)
}
