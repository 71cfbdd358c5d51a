package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/surface"
)

// Debugger writes timestamped full-page screenshots.
type Debugger struct {
	dir string
	log zerolog.Logger
	now func() time.Time
}

func NewDebugger(dir string, log zerolog.Logger) (*Debugger, error) {
	if dir == "" {
		dir = filepath.Join("logs", "screenshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &Debugger{dir: dir, log: log, now: time.Now}, nil
}

func (d *Debugger) Capture(page surface.Page, name string) (string, error) {
	filename := fmt.Sprintf("%s_%s.png", name, d.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(d.dir, filename)
	if err := page.Screenshot(path); err != nil {
		return "", fmt.Errorf("screenshot %s: %w", name, err)
	}
	d.log.Debug().Str("path", path).Msg("📸 Screenshot saved")
	return path, nil
}
