package integration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Browser opens an authorization URL for the user.
type Browser interface {
	Open(ctx context.Context, url string) (Window, error)
}

// Window is an opened authorization page. Closed reports whether the user
// has finished with it.
type Window interface {
	Closed() bool
}

// ConsoleBrowser prints the URL and treats the window as closed once the
// user presses Enter. A window stops waiting when the context passed to Open
// is done, so a timed-out window never swallows a later Enter.
type ConsoleBrowser struct {
	Out io.Writer
	In  io.Reader

	once  sync.Once
	lines chan struct{}
}

type consoleWindow struct {
	closed atomic.Bool
}

func (w *consoleWindow) Closed() bool { return w.closed.Load() }

// readLines delivers one value per input line and closes lines at EOF.
func (b *ConsoleBrowser) readLines() {
	defer close(b.lines)
	scanner := bufio.NewScanner(b.In)
	for scanner.Scan() {
		b.lines <- struct{}{}
	}
}

// Open implements Browser.
func (b *ConsoleBrowser) Open(ctx context.Context, url string) (Window, error) {
	b.once.Do(func() {
		b.lines = make(chan struct{})
		go b.readLines()
	})

	if _, err := fmt.Fprintf(b.Out, "Authorize in your browser:\n  %s\nPress Enter when done.\n", url); err != nil {
		return nil, err
	}

	w := &consoleWindow{}
	go func() {
		select {
		case <-b.lines:
			w.closed.Store(true)
		case <-ctx.Done():
		}
	}()
	return w, nil
}
