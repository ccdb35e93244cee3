package cli

import (
	"strings"
	"sync"
)

// LogWriter implements io.Writer and keeps the last maxLines of log
// output for display in the capture UI. New lines are also announced on
// a non-blocking channel so the UI can redraw.
type LogWriter struct {
	mu    sync.Mutex
	lines []string
	max   int
	ch    chan string
}

// NewLogWriter creates a log writer retaining maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		max: maxLines,
		ch:  make(chan string, 100),
	}
}

// Write implements io.Writer, splitting multi-line input.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	w.mu.Lock()
	for _, line := range strings.Split(text, "\n") {
		w.lines = append(w.lines, line)
		if len(w.lines) > w.max {
			w.lines = w.lines[len(w.lines)-w.max:]
		}
		select {
		case w.ch <- line:
		default:
		}
	}
	w.mu.Unlock()
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

// Channel returns the new-line notification channel.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
