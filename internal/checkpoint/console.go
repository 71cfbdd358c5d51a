package checkpoint

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"
)

// Console releases when a line is read from in.
type Console struct {
	in    io.Reader
	w     io.Writer
	out   *termenv.Output
	lines chan string
	once  sync.Once
}

func NewConsole(in io.Reader, w io.Writer) *Console {
	return &Console{
		in:    in,
		w:     w,
		out:   termenv.NewOutput(w),
		lines: make(chan string),
	}
}

func (c *Console) start() {
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()
}

func (c *Console) Await(ctx context.Context, reason string) error {
	c.once.Do(c.start)
	c.drain()

	title := c.out.String("⏸  " + reason).Foreground(c.out.Color("3")).Bold()
	fmt.Fprintln(c.w, title.String())
	fmt.Fprintln(c.w, "   Solve it in the browser window, then press Enter to resume.")

	select {
	case _, ok := <-c.lines:
		if !ok {
			return ErrAborted
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain drops input typed before the prompt appeared.
func (c *Console) drain() {
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
