package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"go-jobpost-automation/internal/models"
)

// Stdout prints listings instead of publishing them.
type Stdout struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w, out: termenv.NewOutput(w)}
}

func (s *Stdout) Name() string {
	return "stdout"
}

func (s *Stdout) Publish(_ context.Context, l models.JobListing) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := func(name string) string {
		return s.out.String(name).Foreground(s.out.Color("6")).Bold().String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("Title:"), l.Title)
	fmt.Fprintf(&b, "%s %s\n", label("Company:"), l.Company)
	fmt.Fprintf(&b, "%s %s\n", label("Location:"), l.Location)
	fmt.Fprintf(&b, "%s %s\n", label("URL:"), l.URL)
	fmt.Fprintf(&b, "%s %s\n", label("Keyword:"), l.Keyword())
	fmt.Fprintf(&b, "%s %s\n", label("Description:"), l.Description)
	b.WriteString(strings.Repeat("=", 47) + "\n")

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return false, err
	}
	return true, nil
}
