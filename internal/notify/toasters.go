package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LogToaster writes toasts to a structured logger.
type LogToaster struct {
	Logger *slog.Logger
}

// Toast implements Toaster.
func (l LogToaster) Toast(ctx context.Context, t Toast) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, t.Message, "level", string(t.Level), "workflow_id", t.WorkflowID)
}

// WriterToaster writes one line per toast to W.
type WriterToaster struct {
	mu sync.Mutex
	W  io.Writer
}

// NewWriterToaster creates a WriterToaster for w.
func NewWriterToaster(w io.Writer) *WriterToaster {
	return &WriterToaster{W: w}
}

// Toast implements Toaster.
func (w *WriterToaster) Toast(_ context.Context, t Toast) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.W, "[%s] %s\n", t.Level, t.Message)
}
